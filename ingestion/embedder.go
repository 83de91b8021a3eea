package ingestion

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/batching"
	"github.com/poiesic/knownet/storage"
)

// CachedEmbedder is an ai.Embedder that memoizes vectors in a storage.Cache
// and batches misses. A nil cache disables memoization but keeps batching.
type CachedEmbedder struct {
	embedder ai.Embedder
	memo     *memo[[]float32]
}

var _ ai.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps embedder. The caller keeps ownership of cache.
func NewCachedEmbedder(embedder ai.Embedder, cache storage.Cache, opts ...CachedOption) (*CachedEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	cfg := defaultCachedConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	ce := &CachedEmbedder{embedder: embedder}
	batcher, err := batching.New[string, outcome[[]float32]](ce.embedBatch,
		batching.WithBatchSize(cfg.batchSize),
		batching.WithName(ai.ComponentEmbedder),
		batching.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	ce.memo = &memo[[]float32]{
		cache:         cache,
		encode:        storage.MarshalEmbedding,
		decode:        storage.UnmarshalEmbedding,
		batcher:       batcher,
		maxInputChars: cfg.maxInputChars,
		logger:        cfg.logger.With("component", "cached_embedder", "model", embedder.Descriptor().ID()),
	}
	return ce, nil
}

// embedBatch is the batch function. When the whole batch is rejected as too
// large it retries item by item so only the offending inputs carry the error.
func (ce *CachedEmbedder) embedBatch(ctx context.Context, texts []string) ([]outcome[[]float32], error) {
	out := make([]outcome[[]float32], len(texts))

	vecs, err := ce.embedder.EmbedTexts(ctx, texts)
	if err == nil {
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", batching.ErrResultCount, len(vecs), len(texts))
		}
		for i, v := range vecs {
			out[i].val = v
		}
		return out, nil
	}
	if !errors.Is(err, ai.ErrInputTooLarge) || len(texts) == 1 {
		if len(texts) == 1 {
			out[0].err = err
			return out, nil
		}
		return nil, err
	}

	for i, text := range texts {
		out[i].val, out[i].err = ce.embedder.EmbedText(ctx, text)
	}
	return out, nil
}

// EmbedText returns the cached vector for text, computing it on a miss.
func (ce *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return ce.memo.get(ctx, text)
}

// EmbedTexts embeds every text concurrently. Misses submitted together are
// coalesced by the batching service.
func (ce *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			v, err := ce.memo.get(ctx, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Descriptor returns the wrapped embedder's descriptor.
func (ce *CachedEmbedder) Descriptor() ai.ModelDescriptor {
	return ce.embedder.Descriptor()
}

// Stats returns cache counters.
func (ce *CachedEmbedder) Stats() CacheStats {
	return ce.memo.stats()
}

// BatchStats returns counters of the underlying batching service.
func (ce *CachedEmbedder) BatchStats() batching.Stats {
	return ce.memo.batcher.Stats()
}

// Close stops the batching service. It does not close the cache or the
// wrapped embedder.
func (ce *CachedEmbedder) Close() error {
	return ce.memo.batcher.Close()
}
