package ai

import (
	"context"

	"github.com/poiesic/knownet/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping ErrInputTooLarge when the text exceeds the
	// model's input limit.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Descriptor identifies the model behind this embedder.
	Descriptor() ModelDescriptor
}

// TripleExtractor extracts (subject, predicate, object) statements from text.
// Implementations must be thread-safe for concurrent use.
type TripleExtractor interface {
	// ExtractTriples analyzes text and returns the relationships it states.
	// Returns an empty slice if nothing is found.
	// Returns an error wrapping ErrInputTooLarge when the text exceeds the
	// model's input limit.
	ExtractTriples(ctx context.Context, text string) ([]core.Triple, error)

	// Descriptor identifies the model behind this extractor.
	Descriptor() ModelDescriptor
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// TripleExtractor returns the triple extraction service.
	// The returned TripleExtractor is safe for concurrent use.
	TripleExtractor() TripleExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
