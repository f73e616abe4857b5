package engine

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"accidents/internal/models"
	"accidents/internal/table"
)

type monthState struct {
	ym    int32 // YYYYMM
	state string
}

// BuildMonthlyStateCounts derives the heatmap cache from the loaded
// table: rows bucketed by calendar month and state, counted, with the
// maximum cell tracked for color-scale normalization. It runs once right
// after load and must never take the process down; any failure degrades
// to the zero-value cache.
func BuildMonthlyStateCounts(tbl *table.Table, timeColumn, stateColumn string, log zerolog.Logger) (out *models.MonthlyStateCounts) {
	empty := &models.MonthlyStateCounts{Data: []models.MonthlyStateCount{}}
	out = empty

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("heatmap build failed, serving empty cache")
			out = empty
		}
	}()

	if tbl == nil || tbl.NumRows() == 0 {
		return empty
	}
	timeCol, err := tbl.Column(timeColumn)
	if err != nil {
		log.Warn().Err(err).Msg("heatmap build skipped: time column missing")
		return empty
	}
	stateCol, err := tbl.Column(stateColumn)
	if err != nil {
		log.Warn().Err(err).Msg("heatmap build skipped: state column missing")
		return empty
	}

	// Parallel count: one partial map per worker, merged below. Rows with
	// an unparseable timestamp or a null state are dropped.
	numWorkers := runtime.NumCPU()
	numRows := tbl.NumRows()
	if numWorkers > numRows {
		numWorkers = 1
	}
	chunkSize := numRows / numWorkers

	partials := make([]map[monthState]int, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if w == numWorkers-1 {
			end = numRows
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			counts := make(map[monthState]int)
			for i := start; i < end; i++ {
				t, ok := columnTime(timeCol, i)
				if !ok {
					continue
				}
				sv, ok := stateCol.Value(i)
				if !ok {
					continue
				}
				key := monthState{
					ym:    int32(t.Year())*100 + int32(t.Month()),
					state: formatValue(sv),
				}
				counts[key]++
			}
			partials[w] = counts
		}(w, start, end)
	}
	wg.Wait()

	merged := make(map[monthState]int)
	for _, p := range partials {
		for k, n := range p {
			merged[k] += n
		}
	}

	cache := &models.MonthlyStateCounts{Data: make([]models.MonthlyStateCount, 0, len(merged))}
	for k, n := range merged {
		cache.Data = append(cache.Data, models.MonthlyStateCount{
			YearMonth: fmt.Sprintf("%d-%02d", k.ym/100, k.ym%100),
			State:     k.state,
			Count:     n,
		})
		if n > cache.MaxCount {
			cache.MaxCount = n
		}
	}
	sort.Slice(cache.Data, func(i, j int) bool {
		if cache.Data[i].YearMonth != cache.Data[j].YearMonth {
			return cache.Data[i].YearMonth < cache.Data[j].YearMonth
		}
		return cache.Data[i].State < cache.Data[j].State
	})
	return cache
}
