// Package table is the in-memory columnar store behind the accidents API.
// A Table is built exactly once by the loader and never mutated afterward,
// so concurrent readers need no locking.
package table

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when a lookup names a column the schema
// does not have.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered set of equally sized columns.
type Table struct {
	cols    []*Column
	byName  map[string]int
	numRows int
}

// New assembles a Table from columns. Column names must be unique and
// every column must have the same length.
func New(cols []*Column) (*Table, error) {
	t := &Table{
		cols:   cols,
		byName: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		t.byName[c.Name] = i
		if i == 0 {
			t.numRows = c.Len()
		} else if c.Len() != t.numRows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.numRows)
		}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.numRows
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column or ErrColumnNotFound.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.cols[i], nil
}

// Slice returns a view of rows [start, start+count). Bounds are clamped:
// a start at or past the end yields an empty table, an overlong count is
// truncated. Negative inputs are treated as zero.
func (t *Table) Slice(start, count int) *Table {
	if start < 0 {
		start = 0
	}
	if count < 0 {
		count = 0
	}
	if start > t.numRows {
		start = t.numRows
	}
	// Compare against the remaining rows instead of computing start+count,
	// which can wrap for huge counts.
	end := t.numRows
	if count < t.numRows-start {
		end = start + count
	}

	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.slice(start, end)
	}
	return &Table{cols: cols, byName: t.byName, numRows: end - start}
}

// Records materializes every row as a name->value map with nil for null.
// Rows are only ever represented this way at result-building time; the
// columnar form stays the single source of truth.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, t.numRows)
	for i := 0; i < t.numRows; i++ {
		rec := make(map[string]any, len(t.cols))
		for _, c := range t.cols {
			if v, ok := c.Value(i); ok {
				rec[c.Name] = v
			} else {
				rec[c.Name] = nil
			}
		}
		records[i] = rec
	}
	return records
}
