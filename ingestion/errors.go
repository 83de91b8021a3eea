package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerRequired is returned when a crawl scheduler is not provided.
	ErrSchedulerRequired = errors.New("crawl scheduler required")

	// ErrExtractorRequired is returned when a triple extractor is not provided.
	ErrExtractorRequired = errors.New("triple extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a graph store is not provided.
	ErrStoreRequired = errors.New("graph store required")

	// ErrInvalidPoolSize is returned when the worker pool size is not positive.
	ErrInvalidPoolSize = errors.New("pool size must be positive")
)

// Stage names the pipeline step where an item failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageMerge   Stage = "merge"
)

// ItemError records a single item that dropped out of the pipeline.
// Item failures are never fatal to a run.
type ItemError struct {
	SourceURL string
	Stage     Stage
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.SourceURL, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
