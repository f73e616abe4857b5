package engine

import (
	"errors"

	"accidents/internal/table"
)

var (
	// ErrNotReady means the dataset has not been loaded yet. Callers can
	// retry once the background load finishes.
	ErrNotReady = errors.New("dataset not loaded")

	// ErrInvalidArgument means a caller-supplied parameter is out of range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrColumnNotFound mirrors the table-level error so the HTTP layer
	// only depends on this package.
	ErrColumnNotFound = table.ErrColumnNotFound

	// ErrSourceNotFound means the dataset file is missing at load time.
	ErrSourceNotFound = errors.New("dataset source not found")

	// ErrSchemaRead means the source header or footer could not be parsed.
	ErrSchemaRead = errors.New("schema read failed")

	// ErrLoad means the source exists but could not be read into memory.
	ErrLoad = errors.New("dataset load failed")
)
