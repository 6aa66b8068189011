package harvest

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrFetcherRequired is returned when a chunk fetcher is not provided.
	ErrFetcherRequired = errors.New("chunk fetcher required")

	// ErrInitialize is returned when the job cannot read the store's current
	// state. It is the only error that ends a job before any chunk runs.
	ErrInitialize = errors.New("initializing harvest")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("page size must be positive")

	// ErrInvalidOffset is returned when the resume offset is negative.
	ErrInvalidOffset = errors.New("offset must not be negative")

	// ErrWorkerPanic wraps a panic recovered from a fetch worker.
	ErrWorkerPanic = errors.New("fetch worker panicked")
)
