package engine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/parquet/file"
)

// ReadSchema returns the ordered column names of a dataset source
// without materializing any row data. For Parquet only the footer is
// read; for CSV only the header line.
func ReadSchema(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return readParquetSchema(path)
	case ".csv":
		return readCSVSchema(path)
	default:
		return nil, fmt.Errorf("%w: unsupported source format %q", ErrSchemaRead, filepath.Ext(path))
	}
}

func readParquetSchema(path string) ([]string, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaRead, err)
	}
	defer rdr.Close()

	sc := rdr.MetaData().Schema
	names := make([]string, sc.NumColumns())
	for i := range names {
		names[i] = sc.Column(i).Name()
	}
	return names, nil
}

func readCSVSchema(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaRead, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("%w: empty header", ErrSchemaRead)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("%w: empty header", ErrSchemaRead)
	}
	return strings.Split(line, ","), nil
}
