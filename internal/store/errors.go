package store

import "errors"

var (
	// ErrWriteFailed indicates a batch write was rolled back. Key conflicts on
	// source_url are never reported through this error.
	ErrWriteFailed = errors.New("batch write failed")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")

	// ErrDSNRequired is returned when a driver needs a connection string and none is set.
	ErrDSNRequired = errors.New("store DSN required")
)
