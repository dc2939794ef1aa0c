package domain

import "errors"

var (
	// ErrEmptyCatalog is returned when a dataset contains no usable rows
	ErrEmptyCatalog = errors.New("catalog contains no usable rows")

	// ErrUnsupportedFormat is returned for file extensions other than CSV/XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format, use CSV or Excel")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrOracleUnavailable is returned when every arbitration provider failed
	ErrOracleUnavailable = errors.New("arbitration oracle unavailable")

	// ErrRunNotFound is returned when a run ID is unknown to the registry
	ErrRunNotFound = errors.New("analysis run not found")

	// ErrRunInProgress is returned when results are requested before a run finished
	ErrRunInProgress = errors.New("analysis run still in progress")
)
