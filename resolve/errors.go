package resolve

import "errors"

var (
	// ErrEmbedderRequired is returned by New when no embedder is supplied.
	ErrEmbedderRequired = errors.New("resolve: embedder is required")

	// ErrInvalidThreshold is returned when the match threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("resolve: match threshold must be in (0, 1]")

	// ErrInvalidMargin is returned when the ambiguity margin is negative.
	ErrInvalidMargin = errors.New("resolve: ambiguity margin must not be negative")

	// ErrEmptyMention is returned when resolving a blank mention.
	ErrEmptyMention = errors.New("resolve: mention is empty")

	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("resolve: vector dimension mismatch")

	// ErrEmbeddingFailed wraps embedder failures.
	ErrEmbeddingFailed = errors.New("resolve: embedding failed")
)
