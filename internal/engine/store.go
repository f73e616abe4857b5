package engine

import (
	"sync/atomic"

	"accidents/internal/models"
	"accidents/internal/table"
)

// dataset bundles the immutable table with its precomputed heatmap so
// both are published to readers in a single pointer swap.
type dataset struct {
	tbl     *table.Table
	heatmap *models.MonthlyStateCounts
}

// Options tune query behavior. Zero values fall back to the defaults
// below.
type Options struct {
	// SampleLimit is the row count served by Sample when the caller does
	// not ask for one. 10 matches the original service; 100 is the other
	// preset seen in the wild.
	SampleLimit int

	// MaxPageRows rejects page sizes above the cap. 0 means uncapped,
	// which lets a caller pull the whole table in one page.
	MaxPageRows int
}

const defaultSampleLimit = 10

// Store owns the process-wide dataset. It starts empty; Publish moves it
// to populated exactly once. The atomic pointer is the happens-before
// edge that lets request goroutines read the table without locks.
type Store struct {
	opts Options
	data atomic.Pointer[dataset]
}

func NewStore(opts Options) *Store {
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = defaultSampleLimit
	}
	return &Store{opts: opts}
}

// Publish installs the loaded table and its heatmap. Later calls are
// ignored; the dataset never changes within one process lifetime.
func (s *Store) Publish(tbl *table.Table, heatmap *models.MonthlyStateCounts) {
	if heatmap == nil {
		heatmap = &models.MonthlyStateCounts{Data: []models.MonthlyStateCount{}}
	}
	s.data.CompareAndSwap(nil, &dataset{tbl: tbl, heatmap: heatmap})
}

// Ready reports whether queries can be served.
func (s *Store) Ready() bool {
	_, err := s.snapshot()
	return err == nil
}

// snapshot returns the published dataset, or ErrNotReady while the store
// is unpublished or the load produced zero rows.
func (s *Store) snapshot() (*dataset, error) {
	d := s.data.Load()
	if d == nil || d.tbl.NumRows() == 0 {
		return nil, ErrNotReady
	}
	return d, nil
}
