package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"accidents/internal/table"
)

// scenarioTable builds the canonical three-row fixture: two CA rows with
// calendar-string start times and one TX row with an epoch-seconds start
// time (1609459200 = 2021-01-01 UTC), all inside one text column.
func scenarioTable(t *testing.T) *table.Table {
	t.Helper()

	state := table.NewBuilder("State", table.KindText, 3)
	state.AppendText("CA")
	state.AppendText("CA")
	state.AppendText("TX")

	start := table.NewBuilder("Start_Time", table.KindText, 3)
	start.AppendText("2021-01-05")
	start.AppendText("2021-02-05")
	start.AppendText("1609459200")

	tbl, err := table.New([]*table.Column{state.Finish(), start.Finish()})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func readyStore(t *testing.T, opts Options) *Store {
	t.Helper()
	tbl := scenarioTable(t)
	s := NewStore(opts)
	s.Publish(tbl, BuildMonthlyStateCounts(tbl, "Start_Time", "State", zerolog.Nop()))
	return s
}

func TestNotReady(t *testing.T) {
	s := NewStore(Options{})

	if _, err := s.TotalRecords(); !errors.Is(err, ErrNotReady) {
		t.Errorf("TotalRecords err = %v, want ErrNotReady", err)
	}
	if _, err := s.Columns(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Columns err = %v, want ErrNotReady", err)
	}
	if _, err := s.Sample(5); !errors.Is(err, ErrNotReady) {
		t.Errorf("Sample err = %v, want ErrNotReady", err)
	}
	if _, err := s.Page(10, 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("Page err = %v, want ErrNotReady", err)
	}
	if _, err := s.CountByColumn("State"); !errors.Is(err, ErrNotReady) {
		t.Errorf("CountByColumn err = %v, want ErrNotReady", err)
	}
	if _, err := s.YearlyStats("Start_Time"); !errors.Is(err, ErrNotReady) {
		t.Errorf("YearlyStats err = %v, want ErrNotReady", err)
	}

	// The one always-succeeds operation degrades to the zero value.
	hm := s.MonthlyStateCounts()
	if hm.MaxCount != 0 || len(hm.Data) != 0 {
		t.Errorf("MonthlyStateCounts while empty = %+v", hm)
	}
}

func TestTotalRecords(t *testing.T) {
	s := readyStore(t, Options{})
	total, err := s.TotalRecords()
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestSampleDefaultLimit(t *testing.T) {
	s := readyStore(t, Options{SampleLimit: 2})
	records, err := s.Sample(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("sample size = %d, want configured default 2", len(records))
	}
}

func TestPageMatchesSample(t *testing.T) {
	s := readyStore(t, Options{})

	page, err := s.Page(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	sample, err := s.Sample(2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(page, sample) {
		t.Errorf("Page(2,1) = %v, Sample(2) = %v", page, sample)
	}
}

func TestPagePastEndIsEmpty(t *testing.T) {
	s := readyStore(t, Options{})
	records, err := s.Page(2, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want empty page", len(records))
	}
}

func TestPageInvalidArguments(t *testing.T) {
	s := readyStore(t, Options{})

	if _, err := s.Page(0, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Page(0,1) err = %v", err)
	}
	if _, err := s.Page(5, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Page(5,0) err = %v", err)
	}
	if _, err := s.Page(-1, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Page(-1,-1) err = %v", err)
	}
}

func TestPageHugeArguments(t *testing.T) {
	s := readyStore(t, Options{})

	// start = (pageNumber-1)*rowsPerPage would overflow; the contract is
	// still an empty list, never an error or a panic.
	records, err := s.Page(math.MaxInt, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("Page(MaxInt, 2) = %d records, want empty", len(records))
	}

	// Here the multiplication would wrap to a small non-negative start and
	// silently serve page-1 rows.
	records, err = s.Page(2, math.MaxInt/2+2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("Page(2, MaxInt/2+2) = %d records, want empty", len(records))
	}

	records, err = s.Page(math.MaxInt, math.MaxInt)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("Page(MaxInt, MaxInt) = %d records, want empty", len(records))
	}
}

func TestSampleHugeLimit(t *testing.T) {
	s := readyStore(t, Options{})
	records, err := s.Sample(math.MaxInt)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("Sample(MaxInt) = %d records, want whole table", len(records))
	}
}

func TestPageCap(t *testing.T) {
	s := readyStore(t, Options{MaxPageRows: 2})

	if _, err := s.Page(3, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("over-cap page err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Page(2, 1); err != nil {
		t.Errorf("in-cap page err = %v", err)
	}
}

func TestCountByColumn(t *testing.T) {
	s := readyStore(t, Options{})

	groups, err := s.CountByColumn("State")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if groups[0].Value != "CA" || groups[0].Count != 2 {
		t.Errorf("top group = %+v, want CA/2", groups[0])
	}
	if groups[1].Value != "TX" || groups[1].Count != 1 {
		t.Errorf("second group = %+v, want TX/1", groups[1])
	}

	// Counts sum to rows minus nulls in the grouped column.
	sum := 0
	for _, g := range groups {
		sum += g.Count
	}
	if sum != 3 {
		t.Errorf("count sum = %d, want 3", sum)
	}
}

func TestCountByColumnSkipsNulls(t *testing.T) {
	state := table.NewBuilder("State", table.KindText, 3)
	state.AppendText("CA")
	state.AppendNull()
	state.AppendText("CA")
	tbl, err := table.New([]*table.Column{state.Finish()})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{})
	s.Publish(tbl, nil)

	groups, err := s.CountByColumn("State")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Count != 2 {
		t.Errorf("groups = %v, want one CA/2 group", groups)
	}
}

func TestCountByColumnUnknown(t *testing.T) {
	s := readyStore(t, Options{})
	if _, err := s.CountByColumn("Nope"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestCountByNumericColumn(t *testing.T) {
	sev := table.NewBuilder("Severity", table.KindInt, 4)
	sev.AppendInt(2)
	sev.AppendInt(3)
	sev.AppendInt(2)
	sev.AppendInt(2)
	tbl, err := table.New([]*table.Column{sev.Finish()})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{})
	s.Publish(tbl, nil)

	groups, err := s.CountByColumn("Severity")
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].Value != "2" || groups[0].Count != 3 {
		t.Errorf("top group = %+v, want 2/3", groups[0])
	}
}

func TestYearlyStats(t *testing.T) {
	s := readyStore(t, Options{})

	stats, err := s.YearlyStats("Start_Time")
	if err != nil {
		t.Fatal(err)
	}
	// All three rows land in 2021, including the epoch-encoded one.
	if len(stats) != 1 || stats[0].Year != 2021 || stats[0].Count != 3 {
		t.Errorf("stats = %v, want [{2021 3}]", stats)
	}
}

func TestYearlyStatsSortedAndDropsUnparseable(t *testing.T) {
	start := table.NewBuilder("Start_Time", table.KindText, 4)
	start.AppendText("2022-06-01")
	start.AppendText("not a date")
	start.AppendText("2020-01-01")
	start.AppendText("2022-07-04")
	tbl, err := table.New([]*table.Column{start.Finish()})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{})
	s.Publish(tbl, nil)

	stats, err := s.YearlyStats("Start_Time")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %v", stats)
	}
	if stats[0].Year != 2020 || stats[1].Year != 2022 {
		t.Errorf("years not ascending: %v", stats)
	}
	if stats[0].Count+stats[1].Count != 3 {
		t.Errorf("parseable rows = %d, want 3", stats[0].Count+stats[1].Count)
	}
}

func TestQueryIdempotence(t *testing.T) {
	s := readyStore(t, Options{})

	first, err := s.CountByColumn("State")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CountByColumn("State")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated CountByColumn differs: %v vs %v", first, second)
	}

	y1, _ := s.YearlyStats("Start_Time")
	y2, _ := s.YearlyStats("Start_Time")
	if !reflect.DeepEqual(y1, y2) {
		t.Errorf("repeated YearlyStats differs: %v vs %v", y1, y2)
	}
}
