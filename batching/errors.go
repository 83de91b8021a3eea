package batching

import "errors"

var (
	// ErrClosed is returned by Submit after Close, and delivered to pending
	// requests when the service is closed in cancel mode.
	ErrClosed = errors.New("batching service closed")

	// ErrInvalidBatchSize indicates a batch size below 1.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrInvalidQueueSize indicates a negative queue size.
	ErrInvalidQueueSize = errors.New("queue size must not be negative")

	// ErrResultCount indicates the batch function returned a result slice
	// whose length differs from its input.
	ErrResultCount = errors.New("batch result count mismatch")

	// ErrBatchFuncRequired indicates a nil batch function.
	ErrBatchFuncRequired = errors.New("batch function is required")
)
