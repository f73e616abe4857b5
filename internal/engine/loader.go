package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"accidents/internal/table"
)

// inferSampleRows caps how many data rows the CSV type sniffer looks at.
const inferSampleRows = 1024

// unsafeToString views a byte slice as a string without copying. Only
// used for parse attempts; anything stored long-term is copied first.
func unsafeToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// Load reads the entire dataset at path into a Table in one pass.
// Parquet sources are read natively by column through Arrow; CSV sources
// go through the byte parser below. Exactly one load attempt is made per
// process; the caller decides whether a failure is fatal.
func Load(ctx context.Context, path string, log zerolog.Logger) (*table.Table, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	var (
		tbl *table.Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		tbl, err = loadParquet(ctx, path)
	case ".csv":
		tbl, err = loadCSV(path, log)
	default:
		return nil, fmt.Errorf("%w: unsupported source format %q", ErrLoad, ext)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", tbl.NumRows()).
		Int("columns", len(tbl.ColumnNames())).
		Dur("elapsed", time.Since(start)).
		Str("path", path).
		Msg("dataset loaded")
	return tbl, nil
}

// --- Parquet ---

func loadParquet(ctx context.Context, path string) (*table.Table, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	at, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer at.Release()

	numRows := int(at.NumRows())
	cols := make([]*table.Column, 0, int(at.NumCols()))
	for i := 0; i < int(at.NumCols()); i++ {
		field := at.Schema().Field(i)
		chunks := at.Column(i).Data().Chunks()
		kind := kindForArrow(field.Type)

		b := table.NewBuilder(field.Name, kind, numRows)
		for _, chunk := range chunks {
			appendArrowChunk(b, kind, chunk)
		}
		cols = append(cols, b.Finish())
	}

	tbl, err := table.New(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return tbl, nil
}

func kindForArrow(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return table.KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat
	case arrow.BOOL:
		return table.KindBool
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.KindTimestamp
	default:
		return table.KindText
	}
}

func appendArrowChunk(b *table.Builder, kind table.Kind, arr arrow.Array) {
	for j := 0; j < arr.Len(); j++ {
		if arr.IsNull(j) {
			b.AppendNull()
			continue
		}
		switch a := arr.(type) {
		case *array.Int8:
			b.AppendInt(int64(a.Value(j)))
		case *array.Int16:
			b.AppendInt(int64(a.Value(j)))
		case *array.Int32:
			b.AppendInt(int64(a.Value(j)))
		case *array.Int64:
			b.AppendInt(a.Value(j))
		case *array.Uint8:
			b.AppendInt(int64(a.Value(j)))
		case *array.Uint16:
			b.AppendInt(int64(a.Value(j)))
		case *array.Uint32:
			b.AppendInt(int64(a.Value(j)))
		case *array.Uint64:
			b.AppendInt(int64(a.Value(j)))
		case *array.Float32:
			b.AppendFloat(float64(a.Value(j)))
		case *array.Float64:
			b.AppendFloat(a.Value(j))
		case *array.Boolean:
			b.AppendBool(a.Value(j))
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			b.AppendTime(timestampToSeconds(int64(a.Value(j)), unit))
		case *array.Date32:
			b.AppendTime(int64(a.Value(j)) * 86400)
		case *array.Date64:
			b.AppendTime(int64(a.Value(j)) / 1000)
		case *array.String:
			b.AppendText(a.Value(j))
		case *array.LargeString:
			b.AppendText(a.Value(j))
		default:
			if kind == table.KindText {
				b.AppendText(arr.ValueStr(j))
			} else {
				b.AppendNull()
			}
		}
	}
}

func timestampToSeconds(v int64, unit arrow.TimeUnit) int64 {
	switch unit {
	case arrow.Second:
		return v
	case arrow.Millisecond:
		return v / 1_000
	case arrow.Microsecond:
		return v / 1_000_000
	case arrow.Nanosecond:
		return v / 1_000_000_000
	}
	return v
}

// --- CSV ---

// loadCSV parses an unquoted comma-separated export the same way the old
// sales loader did: one os.ReadFile, then byte slicing with bytes.Cut.
// Column types are sniffed from the first rows; empty fields are nulls.
// There is no quote handling, so a row whose field count disagrees with
// the header (e.g. an embedded comma) is dropped and counted.
func loadCSV(path string, log zerolog.Logger) (*table.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	header, rest, found := bytes.Cut(content, []byte{'\n'})
	if !found && len(header) == 0 {
		return nil, fmt.Errorf("%w: empty header", ErrSchemaRead)
	}
	names := strings.Split(strings.TrimRight(string(header), "\r"), ",")
	numCols := len(names)

	rowEstimate := bytes.Count(rest, []byte{'\n'}) + 1
	kinds := inferKinds(rest, numCols)

	builders := make([]*table.Builder, numCols)
	for i, name := range names {
		builders[i] = table.NewBuilder(name, kinds[i], rowEstimate)
	}

	dropped := 0
	fields := make([][]byte, 0, numCols)
	for line := range lines(rest) {
		fields = splitFields(fields[:0], line)
		if len(fields) != numCols {
			dropped++
			continue
		}
		for i, f := range fields {
			appendCSVField(builders[i], kinds[i], f)
		}
	}
	if dropped > 0 {
		log.Warn().
			Int("rows", dropped).
			Str("path", path).
			Msg("dropped ragged csv rows with mismatched field counts")
	}

	cols := make([]*table.Column, numCols)
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	tbl, err := table.New(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return tbl, nil
}

// lines iterates non-empty newline-terminated slices of data.
func lines(data []byte) func(yield func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			line, rest, _ := bytes.Cut(data, []byte{'\n'})
			data = rest
			line = bytes.TrimSuffix(line, []byte{'\r'})
			if len(line) == 0 {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func splitFields(dst [][]byte, line []byte) [][]byte {
	for {
		field, rest, found := bytes.Cut(line, []byte{','})
		dst = append(dst, field)
		if !found {
			return dst
		}
		line = rest
	}
}

// inferKinds classifies each column from a sample of rows. A column is
// the narrowest kind every sampled non-null value fits: Int, then Float,
// then Bool, then Timestamp, falling back to Text. Numeric columns are
// deliberately not sniffed as epoch timestamps here; that interpretation
// only happens when a query asks for a time axis.
func inferKinds(data []byte, numCols int) []table.Kind {
	type colStats struct {
		seen    bool
		allInt  bool
		allNum  bool
		allBool bool
		allTime bool
	}
	stats := make([]colStats, numCols)
	for i := range stats {
		stats[i] = colStats{allInt: true, allNum: true, allBool: true, allTime: true}
	}

	row := 0
	fields := make([][]byte, 0, numCols)
	for line := range lines(data) {
		fields = splitFields(fields[:0], line)
		if len(fields) != numCols {
			continue
		}
		for i, f := range fields {
			if len(f) == 0 {
				continue
			}
			s := unsafeToString(f)
			st := &stats[i]
			st.seen = true
			if st.allInt {
				if _, err := strconv.ParseInt(s, 10, 64); err != nil {
					st.allInt = false
				}
			}
			if st.allNum {
				if _, err := strconv.ParseFloat(s, 64); err != nil {
					st.allNum = false
				}
			}
			if st.allBool {
				if _, err := strconv.ParseBool(s); err != nil {
					st.allBool = false
				}
			}
			if st.allTime {
				if !parseCalendar(s) {
					st.allTime = false
				}
			}
		}
		row++
		if row >= inferSampleRows {
			break
		}
	}

	kinds := make([]table.Kind, numCols)
	for i, st := range stats {
		switch {
		case !st.seen:
			kinds[i] = table.KindText
		case st.allInt:
			kinds[i] = table.KindInt
		case st.allNum:
			kinds[i] = table.KindFloat
		case st.allBool:
			kinds[i] = table.KindBool
		case st.allTime:
			kinds[i] = table.KindTimestamp
		default:
			kinds[i] = table.KindText
		}
	}
	return kinds
}

func parseCalendar(s string) bool {
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func appendCSVField(b *table.Builder, kind table.Kind, f []byte) {
	if len(f) == 0 {
		b.AppendNull()
		return
	}
	s := unsafeToString(f)
	switch kind {
	case table.KindInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendInt(v)
	case table.KindFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendFloat(v)
	case table.KindBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendBool(v)
	case table.KindTimestamp:
		t, ok := parseTimeString(s)
		if !ok {
			b.AppendNull()
			return
		}
		b.AppendTime(t.Unix())
	default:
		b.AppendText(string(f))
	}
}
