package engine

import (
	"strconv"
	"time"

	"accidents/internal/table"
)

// timeLayouts are tried in order when a value is not numeric. The first
// two are what the accidents export actually contains; the rest cover
// re-exports from other tools.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// parseTimeString applies the dual-encoding rule to a raw value: an
// all-numeric string is epoch seconds, anything else is tried against
// the calendar layouts. The heuristic can misread a numeric categorical
// code as a timestamp, which is inherited from the source data and is
// why unparseable values become nulls instead of errors.
func parseTimeString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0).UTC(), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// columnTime reads row i of a column as a point in time. Numeric columns
// are interpreted as epoch seconds, text columns go through the layout
// list, timestamp columns were already normalized at load.
func columnTime(c *table.Column, i int) (time.Time, bool) {
	v, ok := c.Value(i)
	if !ok {
		return time.Time{}, false
	}
	switch c.Kind {
	case table.KindTimestamp:
		return time.Unix(v.(int64), 0).UTC(), true
	case table.KindInt:
		return time.Unix(v.(int64), 0).UTC(), true
	case table.KindFloat:
		return time.Unix(int64(v.(float64)), 0).UTC(), true
	case table.KindText:
		return parseTimeString(v.(string))
	}
	return time.Time{}, false
}
