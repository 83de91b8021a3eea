// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package knownet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hack-pad/hackpadfs"
	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/ai/openai"
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/crawl"
	"github.com/poiesic/knownet/graph"
	"github.com/poiesic/knownet/ingestion"
	"github.com/poiesic/knownet/resolve"
	"github.com/poiesic/knownet/search"
	"github.com/poiesic/knownet/storage"
	"github.com/poiesic/knownet/storage/badger"
)

// DefaultCacheRoot is the cache directory used when NewBuilder gets an empty root.
const DefaultCacheRoot = ".knownet_cache"

// Builder wires crawling, cached inference, entity resolution and the graph
// store into one knowledge graph builder. A Builder owns one entity arena;
// its caches persist across Builders sharing a cache root.
type Builder struct {
	provider     ai.AIProvider
	embedCache   storage.Cache
	extractCache storage.Cache
	embedder     *ingestion.CachedEmbedder
	extractor    *ingestion.CachedExtractor
	store        *graph.Store
	scheduler    *crawl.Scheduler
	pipeline     *ingestion.Pipeline
	baseLogger   *slog.Logger
	logger       *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	embedder     ai.Embedder
	extractor    ai.TripleExtractor
	index        resolve.Index
	inMemory     bool
	logger       *slog.Logger
	crawlOpts    []crawl.Option
	resolveOpts  []resolve.Option
	graphOpts    []graph.Option
	cacheOpts    []ingestion.CachedOption
	pipelineOpts []ingestion.Option
}

// WithAIConfig sets the configuration for the default OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) BuilderOption {
	return func(o *builderOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies the AI provider. The caller keeps ownership and
// closes it after the Builder.
func WithProvider(p ai.AIProvider) BuilderOption {
	return func(o *builderOptions) {
		o.provider = p
	}
}

// WithEmbedder overrides the provider's embedder.
func WithEmbedder(e ai.Embedder) BuilderOption {
	return func(o *builderOptions) {
		o.embedder = e
	}
}

// WithTripleExtractor overrides the provider's triple extractor.
func WithTripleExtractor(e ai.TripleExtractor) BuilderOption {
	return func(o *builderOptions) {
		o.extractor = e
	}
}

// WithIndex sets the resolver's nearest-neighbor index. Defaults to HNSW.
func WithIndex(idx resolve.Index) BuilderOption {
	return func(o *builderOptions) {
		o.index = idx
	}
}

// WithInMemoryCache keeps both caches in memory. Intended for tests.
func WithInMemoryCache() BuilderOption {
	return func(o *builderOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(o *builderOptions) {
		o.logger = logger
	}
}

// WithMatchThreshold sets the cosine similarity above which mentions merge.
func WithMatchThreshold(t float32) BuilderOption {
	return func(o *builderOptions) {
		o.resolveOpts = append(o.resolveOpts, resolve.WithMatchThreshold(t))
	}
}

// WithCrawlOptions passes options through to the crawl scheduler.
func WithCrawlOptions(opts ...crawl.Option) BuilderOption {
	return func(o *builderOptions) {
		o.crawlOpts = append(o.crawlOpts, opts...)
	}
}

// WithResolverOptions passes options through to the entity resolver.
func WithResolverOptions(opts ...resolve.Option) BuilderOption {
	return func(o *builderOptions) {
		o.resolveOpts = append(o.resolveOpts, opts...)
	}
}

// WithGraphOptions passes options through to the graph store.
func WithGraphOptions(opts ...graph.Option) BuilderOption {
	return func(o *builderOptions) {
		o.graphOpts = append(o.graphOpts, opts...)
	}
}

// WithCacheOptions applies to both the cached embedder and the cached extractor.
func WithCacheOptions(opts ...ingestion.CachedOption) BuilderOption {
	return func(o *builderOptions) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

// WithPipelineOptions passes options through to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) BuilderOption {
	return func(o *builderOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// NewBuilder opens the embedding and extraction caches below cacheRoot and
// assembles the pipeline. Without WithProvider, or both WithEmbedder and
// WithTripleExtractor, an OpenAI-compatible provider is created from the AI
// config and closed with the Builder.
func NewBuilder(cacheRoot string, opts ...BuilderOption) (*Builder, error) {
	options := &builderOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if cacheRoot == "" {
		cacheRoot = DefaultCacheRoot
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	b := &Builder{baseLogger: logger, logger: logger.With("component", "builder")}

	embedder, extractor := options.embedder, options.extractor
	if embedder == nil || extractor == nil {
		provider := options.provider
		if provider == nil {
			p, err := openai.NewProvider(options.aiConfig)
			if err != nil {
				return nil, err
			}
			provider = p
			b.provider = p
		}
		if embedder == nil {
			embedder = provider.Embedder()
		}
		if extractor == nil {
			extractor = provider.TripleExtractor()
		}
	}

	if err := b.openCaches(cacheRoot, embedder, extractor, options); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.assemble(options); err != nil {
		b.Close()
		return nil, err
	}

	b.logger.Info("builder ready",
		"cache_root", cacheRoot,
		"embedder", embedder.Descriptor().ID(),
		"extractor", extractor.Descriptor().ID())
	return b, nil
}

func (b *Builder) openCaches(root string, embedder ai.Embedder, extractor ai.TripleExtractor, options *builderOptions) error {
	cacheOpts := []badger.Option{badger.WithLogger(options.logger)}
	if options.inMemory {
		cacheOpts = append(cacheOpts, badger.WithInMemory())
	}

	var err error
	b.embedCache, err = badger.OpenCache(root, embedder.Descriptor().Namespace(ai.ComponentEmbedder), cacheOpts...)
	if err != nil {
		return err
	}
	b.extractCache, err = badger.OpenCache(root, extractor.Descriptor().Namespace(ai.ComponentTripleExtractor), cacheOpts...)
	if err != nil {
		return err
	}

	cachedOpts := []ingestion.CachedOption{ingestion.WithCacheLogger(options.logger)}
	if options.aiConfig != nil {
		cachedOpts = append(cachedOpts, ingestion.WithMaxInputChars(options.aiConfig.MaxInputChars))
	}
	cachedOpts = append(cachedOpts, options.cacheOpts...)

	b.embedder, err = ingestion.NewCachedEmbedder(embedder, b.embedCache, cachedOpts...)
	if err != nil {
		return err
	}
	b.extractor, err = ingestion.NewCachedExtractor(extractor, b.extractCache, cachedOpts...)
	return err
}

func (b *Builder) assemble(options *builderOptions) error {
	resolver, err := resolve.New(b.embedder, options.index,
		append([]resolve.Option{resolve.WithLogger(options.logger)}, options.resolveOpts...)...)
	if err != nil {
		return err
	}
	b.store, err = graph.New(resolver,
		append([]graph.Option{graph.WithLogger(options.logger)}, options.graphOpts...)...)
	if err != nil {
		return err
	}
	b.scheduler, err = crawl.NewScheduler(
		append([]crawl.Option{crawl.WithLogger(options.logger)}, options.crawlOpts...)...)
	if err != nil {
		return err
	}
	b.pipeline, err = ingestion.NewPipeline(b.scheduler, b.extractor, b.store,
		append([]ingestion.Option{ingestion.WithLogger(options.logger)}, options.pipelineOpts...)...)
	return err
}

// Close releases the worker pools, the caches and an owned provider.
func (b *Builder) Close() error {
	var errs []error
	if b.pipeline != nil {
		b.pipeline.Release()
	}
	if b.scheduler != nil {
		b.scheduler.Release()
	}
	if b.extractor != nil {
		b.extractor.Close()
	}
	if b.embedder != nil {
		b.embedder.Close()
	}
	if b.extractCache != nil {
		if err := b.extractCache.Close(); err != nil {
			b.logger.Error("error closing extraction cache", "err", err)
			errs = append(errs, err)
		}
	}
	if b.embedCache != nil {
		if err := b.embedCache.Close(); err != nil {
			b.logger.Error("error closing embedding cache", "err", err)
			errs = append(errs, err)
		}
	}
	if b.provider != nil {
		if err := b.provider.Close(); err != nil {
			b.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Crawl fetches seed, follows its selected links and merges every page.
func (b *Builder) Crawl(ctx context.Context, seed string) (*ingestion.Report, error) {
	return b.pipeline.Run(ctx, seed)
}

// AddContent merges one already-fetched item.
func (b *Builder) AddContent(ctx context.Context, item core.ContentItem) error {
	report, err := b.pipeline.Ingest(ctx, item)
	if err != nil {
		return err
	}
	return report.Err()
}

// AddContentBatch merges already-fetched items. Per-item failures are in the
// report; the error is only set when ctx ends.
func (b *Builder) AddContentBatch(ctx context.Context, items []core.ContentItem) (*ingestion.Report, error) {
	return b.pipeline.Ingest(ctx, items...)
}

// Graph returns a snapshot of the entities and relations merged so far.
func (b *Builder) Graph() *core.GraphSnapshot {
	return b.store.Graph()
}

// Neighborhood returns the relations around the entity a mention resolved to.
func (b *Builder) Neighborhood(mention string, depth int) ([]string, error) {
	return b.store.NeighborhoodOf(mention, depth)
}

// Store returns the underlying graph store.
func (b *Builder) Store() *graph.Store {
	return b.store
}

// Searcher returns a retrieval searcher over this Builder's graph.
func (b *Builder) Searcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(b.store,
		append([]search.Option{search.WithLogger(b.baseLogger)}, opts...)...)
}

// Export writes the graph snapshot as JSON to name on fsys.
func (b *Builder) Export(fsys hackpadfs.FS, name string) error {
	return b.store.WriteSnapshotFile(fsys, name)
}

// ExportTo writes the graph snapshot as JSON to w.
func (b *Builder) ExportTo(w io.Writer) error {
	return b.store.WriteSnapshot(w)
}

// ClearCaches removes every cached embedding and extraction for the
// configured models.
func (b *Builder) ClearCaches(ctx context.Context) error {
	if err := b.embedCache.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", b.embedCache.Namespace(), err)
	}
	if err := b.extractCache.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", b.extractCache.Namespace(), err)
	}
	return nil
}

// CacheStats returns the embedding and extraction cache counters.
func (b *Builder) CacheStats() (embed, extract ingestion.CacheStats) {
	return b.embedder.Stats(), b.extractor.Stats()
}
