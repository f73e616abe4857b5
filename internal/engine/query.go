package engine

import (
	"fmt"
	"sort"
	"strconv"

	"accidents/internal/models"
	"accidents/internal/table"
)

// Columns returns the schema's column names in order.
func (s *Store) Columns() ([]string, error) {
	d, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return d.tbl.ColumnNames(), nil
}

// TotalRecords returns the row count of the loaded table.
func (s *Store) TotalRecords() (int, error) {
	d, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	return d.tbl.NumRows(), nil
}

// Sample returns the first limit rows as records. A non-positive limit
// falls back to the configured default.
func (s *Store) Sample(limit int) ([]map[string]any, error) {
	d, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.SampleLimit
	}
	return d.tbl.Slice(0, limit).Records(), nil
}

// Page returns one 1-indexed page of rows. Both arguments must be
// positive; a page starting at or past the end is an empty list, not an
// error.
func (s *Store) Page(rowsPerPage, pageNumber int) ([]map[string]any, error) {
	if rowsPerPage <= 0 || pageNumber <= 0 {
		return nil, fmt.Errorf("%w: rows and page must be positive", ErrInvalidArgument)
	}
	if s.opts.MaxPageRows > 0 && rowsPerPage > s.opts.MaxPageRows {
		return nil, fmt.Errorf("%w: rows exceeds cap of %d", ErrInvalidArgument, s.opts.MaxPageRows)
	}
	d, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	// A page index past the table is an empty list. Checked by division so
	// (pageNumber-1)*rowsPerPage can never wrap on huge-but-valid inputs.
	if pageNumber-1 > d.tbl.NumRows()/rowsPerPage {
		return []map[string]any{}, nil
	}
	start := (pageNumber - 1) * rowsPerPage
	return d.tbl.Slice(start, rowsPerPage).Records(), nil
}

// CountByColumn groups the named column by distinct value. Results come
// back sorted by descending count; ties keep first-encounter order, which
// is all the grouping pass guarantees. Null entries are not counted.
func (s *Store) CountByColumn(column string) ([]models.ValueCount, error) {
	d, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	col, err := d.tbl.Column(column)
	if err != nil {
		return nil, err
	}

	var groups []models.ValueCount
	if col.Kind == table.KindText {
		// Dictionary column: count by array index, no hashing.
		counts := make([]int, len(col.Dict))
		for i, ok := range col.Valid {
			if ok {
				counts[col.IDs[i]]++
			}
		}
		for id, n := range counts {
			if n > 0 {
				groups = append(groups, models.ValueCount{Value: col.Dict[id], Count: n})
			}
		}
	} else {
		index := make(map[string]int)
		for i := range col.Valid {
			v, ok := col.Value(i)
			if !ok {
				continue
			}
			key := formatValue(v)
			if at, seen := index[key]; seen {
				groups[at].Count++
			} else {
				index[key] = len(groups)
				groups = append(groups, models.ValueCount{Value: key, Count: 1})
			}
		}
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups, nil
}

// YearlyStats buckets the named timestamp column by calendar year. Rows
// whose value cannot be read as a time are dropped. Unlike CountByColumn
// the output order is part of the contract: ascending by year.
func (s *Store) YearlyStats(timestampColumn string) ([]models.YearCount, error) {
	d, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	col, err := d.tbl.Column(timestampColumn)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int]int)
	for i := 0; i < col.Len(); i++ {
		if t, ok := columnTime(col, i); ok {
			byYear[t.Year()]++
		}
	}

	out := make([]models.YearCount, 0, len(byYear))
	for y, n := range byYear {
		out = append(out, models.YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// MonthlyStateCounts serves the precomputed heatmap. This is the one
// operation that never fails: before the dataset is published it answers
// the zero-value form.
func (s *Store) MonthlyStateCounts() *models.MonthlyStateCounts {
	d := s.data.Load()
	if d == nil {
		return &models.MonthlyStateCounts{Data: []models.MonthlyStateCount{}}
	}
	return d.heatmap
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
