package ingestion

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/batching"
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/storage"
)

// CachedExtractor is an ai.TripleExtractor that memoizes extraction results
// in a storage.Cache and batches misses.
type CachedExtractor struct {
	extractor   ai.TripleExtractor
	concurrency int
	memo        *memo[[]core.Triple]
}

var _ ai.TripleExtractor = (*CachedExtractor)(nil)

// NewCachedExtractor wraps extractor. The caller keeps ownership of cache.
func NewCachedExtractor(extractor ai.TripleExtractor, cache storage.Cache, opts ...CachedOption) (*CachedExtractor, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	cfg := defaultCachedConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	ce := &CachedExtractor{extractor: extractor, concurrency: cfg.concurrency}
	batcher, err := batching.New[string, outcome[[]core.Triple]](ce.extractBatch,
		batching.WithBatchSize(cfg.batchSize),
		batching.WithName(ai.ComponentTripleExtractor),
		batching.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	ce.memo = &memo[[]core.Triple]{
		cache:         cache,
		encode:        storage.MarshalTriples,
		decode:        storage.UnmarshalTriples,
		batcher:       batcher,
		maxInputChars: cfg.maxInputChars,
		logger:        cfg.logger.With("component", "cached_extractor", "model", extractor.Descriptor().ID()),
	}
	return ce, nil
}

func (ce *CachedExtractor) extractBatch(ctx context.Context, texts []string) ([]outcome[[]core.Triple], error) {
	out := make([]outcome[[]core.Triple], len(texts))

	var g errgroup.Group
	g.SetLimit(ce.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			triples, err := ce.extractor.ExtractTriples(ctx, text)
			if triples == nil && err == nil {
				triples = []core.Triple{}
			}
			out[i] = outcome[[]core.Triple]{val: triples, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// ExtractTriples returns the cached triples for text, extracting on a miss.
func (ce *CachedExtractor) ExtractTriples(ctx context.Context, text string) ([]core.Triple, error) {
	return ce.memo.get(ctx, text)
}

// Descriptor returns the wrapped extractor's descriptor.
func (ce *CachedExtractor) Descriptor() ai.ModelDescriptor {
	return ce.extractor.Descriptor()
}

// Stats returns cache counters.
func (ce *CachedExtractor) Stats() CacheStats {
	return ce.memo.stats()
}

// BatchStats returns counters of the underlying batching service.
func (ce *CachedExtractor) BatchStats() batching.Stats {
	return ce.memo.batcher.Stats()
}

// Close stops the batching service. It does not close the cache or the
// wrapped extractor.
func (ce *CachedExtractor) Close() error {
	return ce.memo.batcher.Close()
}
