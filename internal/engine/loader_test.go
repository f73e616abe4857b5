package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"accidents/internal/table"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accidents.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTempCSV(t, `ID,Severity,Distance,State,Start_Time,Amenity
A-1,2,0.5,CA,2021-01-05 08:00:00,false
A-2,3,1.25,CA,2021-02-05 09:30:00,true
A-3,2,,TX,2021-01-01 00:00:00,false
`)

	tbl, err := Load(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", tbl.NumRows())
	}

	wantKinds := map[string]table.Kind{
		"ID":         table.KindText,
		"Severity":   table.KindInt,
		"Distance":   table.KindFloat,
		"State":      table.KindText,
		"Start_Time": table.KindTimestamp,
		"Amenity":    table.KindBool,
	}
	for name, kind := range wantKinds {
		col, err := tbl.Column(name)
		if err != nil {
			t.Fatalf("column %s: %v", name, err)
		}
		if col.Kind != kind {
			t.Errorf("column %s inferred as %v, want %v", name, col.Kind, kind)
		}
	}

	dist, _ := tbl.Column("Distance")
	if dist.NullCount() != 1 {
		t.Errorf("Distance nulls = %d, want 1", dist.NullCount())
	}

	start, _ := tbl.Column("Start_Time")
	v, ok := start.Value(2)
	if !ok {
		t.Fatal("Start_Time row 2 is null")
	}
	// 2021-01-01 00:00:00 UTC
	if v.(int64) != 1609459200 {
		t.Errorf("Start_Time row 2 = %d, want 1609459200", v.(int64))
	}
}

func TestLoadCSVSkipsRaggedRows(t *testing.T) {
	path := writeTempCSV(t, `A,B
1,2
3
4,5
`)
	var logged bytes.Buffer
	tbl, err := Load(context.Background(), path, zerolog.New(&logged))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2 (ragged row dropped)", tbl.NumRows())
	}
	// The drop must not be silent: operators get a count in the log.
	if !strings.Contains(logged.String(), "ragged") || !strings.Contains(logged.String(), `"rows":1`) {
		t.Errorf("dropped-row warning missing or wrong: %s", logged.String())
	}
}

func TestLoadMissingSource(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"), zerolog.Nop())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("err = %v, want ErrSourceNotFound", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), path, zerolog.Nop())
	if !errors.Is(err, ErrLoad) {
		t.Errorf("err = %v, want ErrLoad", err)
	}
}

func writeTempParquet(t *testing.T) string {
	t.Helper()

	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "State", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "Severity", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "Distance", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	rb.Field(0).(*array.StringBuilder).AppendValues([]string{"CA", "TX", "CA"}, []bool{true, true, true})
	rb.Field(1).(*array.Int64Builder).AppendValues([]int64{2, 3, 0}, []bool{true, true, false})
	rb.Field(2).(*array.Float64Builder).AppendValues([]float64{0.5, 1.25, 2.0}, []bool{true, true, true})

	rec := rb.NewRecord()
	defer rec.Release()
	at := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer at.Release()

	path := filepath.Join(t.TempDir(), "accidents.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	err = pqarrow.WriteTable(at, f, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParquet(t *testing.T) {
	path := writeTempParquet(t)

	tbl, err := Load(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", tbl.NumRows())
	}

	state, err := tbl.Column("State")
	if err != nil {
		t.Fatal(err)
	}
	if state.Kind != table.KindText {
		t.Errorf("State kind = %v, want text", state.Kind)
	}
	if v, ok := state.Value(1); !ok || v != "TX" {
		t.Errorf("State row 1 = %v, %v", v, ok)
	}

	sev, err := tbl.Column("Severity")
	if err != nil {
		t.Fatal(err)
	}
	if sev.Kind != table.KindInt {
		t.Errorf("Severity kind = %v, want int", sev.Kind)
	}
	if sev.NullCount() != 1 {
		t.Errorf("Severity nulls = %d, want 1", sev.NullCount())
	}
}

func TestReadSchema(t *testing.T) {
	csvPath := writeTempCSV(t, "ID,State,Start_Time\nA-1,CA,2021-01-05\n")
	names, err := ReadSchema(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ID", "State", "Start_Time"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	pqPath := writeTempParquet(t)
	names, err = ReadSchema(pqPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 || names[0] != "State" {
		t.Errorf("parquet schema = %v", names)
	}

	if _, err := ReadSchema(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("missing source err = %v", err)
	}
}
