package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/crawl"
	"github.com/poiesic/knownet/graph"
)

// Pipeline crawls a seed page, extracts triples from every fetched item and
// merges them into a graph.Store.
//
// Extraction runs on a bounded worker pool. Merging happens on the goroutine
// that called Run or Ingest, one item at a time, so the store sees a single
// writer per run.
type Pipeline struct {
	scheduler *crawl.Scheduler
	extractor ai.TripleExtractor
	store     *graph.Store
	pool      *ants.Pool
	poolSize  int
	monitor   Monitor
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent extraction workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}

		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		p.poolSize = size
		return nil
	}
}

// WithMonitor sets a Monitor notified as the run progresses.
func WithMonitor(m Monitor) Option {
	return func(p *Pipeline) error {
		if m == nil {
			m = noopMonitor{}
		}
		p.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline. The scheduler may be nil when only Ingest
// is used.
func NewPipeline(scheduler *crawl.Scheduler, extractor ai.TripleExtractor, store *graph.Store, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		scheduler: scheduler,
		extractor: extractor,
		store:     store,
		pool:      pool,
		poolSize:  poolSize,
		monitor:   noopMonitor{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Report summarizes one run.
type Report struct {
	Seed       string
	Links      int // Links selected from the seed page, or items passed to Ingest
	Fetched    int // Items that reached extraction
	Skipped    int // Items with no text
	Duplicates int // Items repeating an earlier item's URL and text
	Extracted  int // Items extracted successfully
	Triples    int // Raw triples extracted
	Merged     int // Triples merged into the graph
	Sources    []string
	Failures   []*ItemError
	Duration   time.Duration
}

// Err joins every item failure, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Report) fail(m Monitor, err *ItemError) {
	r.Failures = append(r.Failures, err)
	m.ItemFailed(err)
}

// Run crawls seed and merges everything it yields. Only a seed fetch failure
// or a missing scheduler returns a nil report. A cancelled ctx returns the
// partial report together with the context error.
func (p *Pipeline) Run(ctx context.Context, seed string) (*Report, error) {
	if p.scheduler == nil {
		return nil, ErrSchedulerRequired
	}
	start := time.Now()
	p.monitor.Start(seed)
	p.logger.Info("crawl starting", "seed", seed)

	stream, err := p.scheduler.Crawl(ctx, seed)
	if err != nil {
		p.logger.Error("crawl failed", "seed", seed, "err", err)
		return nil, err
	}
	defer stream.Close()

	report := &Report{Seed: seed, Links: len(stream.Links())}
	p.monitor.LinksDiscovered(stream.Links())

	p.process(ctx, stream.Items(), report)

	for _, f := range stream.Failures() {
		report.fail(p.monitor, &ItemError{SourceURL: f.URL, Stage: StageFetch, Err: f})
	}
	report.Duration = time.Since(start)
	p.monitor.Finish(report)
	p.logReport(report)

	return report, stream.Err()
}

// Ingest merges already-fetched items without crawling.
func (p *Pipeline) Ingest(ctx context.Context, items ...core.ContentItem) (*Report, error) {
	start := time.Now()
	p.monitor.Start("")

	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.SourceURL
	}
	report := &Report{Links: len(items)}
	p.monitor.LinksDiscovered(urls)

	ch := make(chan core.ContentItem)
	go func() {
		defer close(ch)
		for _, item := range items {
			select {
			case ch <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	p.process(ctx, ch, report)

	report.Duration = time.Since(start)
	p.monitor.Finish(report)
	p.logReport(report)
	return report, ctx.Err()
}

type extraction struct {
	item      core.ContentItem
	triples   []core.Triple
	skipped   bool
	duplicate bool
	err       error
}

// itemKey identifies an item by source and text. Re-extracting a repeat
// could only re-add the same triples under the same provenance.
func itemKey(item core.ContentItem) core.ID {
	return core.IDFromContent(item.SourceURL + "\n" + item.Text)
}

// process fans items out to the extraction pool and merges the results on
// the calling goroutine.
func (p *Pipeline) process(ctx context.Context, items <-chan core.ContentItem, report *Report) {
	results := make(chan extraction, p.poolSize)

	go func() {
		var wg sync.WaitGroup
		defer close(results)
		defer wg.Wait()

		seen := make(map[core.ID]struct{})
		for item := range items {
			p.monitor.ItemFetched(item)
			if err := core.ValidateContentItem(&item); err != nil {
				results <- extraction{item: item, err: err}
				continue
			}
			key := itemKey(item)
			if _, ok := seen[key]; ok {
				results <- extraction{item: item, duplicate: true}
				continue
			}
			seen[key] = struct{}{}

			wg.Add(1)
			err := p.pool.Submit(func() {
				defer wg.Done()
				results <- p.extract(ctx, item)
			})
			if err != nil {
				wg.Done()
				results <- extraction{item: item, err: fmt.Errorf("submit extraction: %w", err)}
			}
		}
	}()

	for r := range results {
		p.merge(ctx, r, report)
	}
}

func (p *Pipeline) extract(ctx context.Context, item core.ContentItem) extraction {
	if item.Text == "" {
		return extraction{item: item, skipped: true}
	}
	triples, err := p.extractor.ExtractTriples(ctx, item.Text)
	return extraction{item: item, triples: triples, err: err}
}

func (p *Pipeline) merge(ctx context.Context, r extraction, report *Report) {
	url := r.item.SourceURL
	if r.duplicate {
		p.logger.Debug("duplicate item dropped", "url", url)
		report.Duplicates++
		p.monitor.TriplesMerged(url, 0)
		return
	}
	report.Fetched++

	switch {
	case r.err != nil:
		p.logger.Warn("extraction failed", "url", url, "err", r.err)
		report.fail(p.monitor, &ItemError{SourceURL: url, Stage: StageExtract, Err: r.err})
		return
	case r.skipped:
		p.logger.Debug("item has no text", "url", url)
		report.Skipped++
		p.monitor.TriplesMerged(url, 0)
		return
	}

	report.Extracted++
	report.Triples += len(r.triples)
	p.monitor.ItemExtracted(url, len(r.triples))

	raw := make([]core.RawTriple, len(r.triples))
	for i, t := range r.triples {
		raw[i] = core.NewRawTriple(t, url)
	}
	merged, err := p.store.AddTripleBatch(ctx, raw)
	report.Merged += merged
	if merged > 0 {
		report.Sources = append(report.Sources, url)
	}
	if err != nil {
		p.logger.Warn("some triples not merged", "url", url, "merged", merged, "of", len(raw), "err", err)
		report.fail(p.monitor, &ItemError{SourceURL: url, Stage: StageMerge, Err: err})
	}
	p.logger.Debug("item merged", "url", url, "triples", len(raw), "merged", merged)
	p.monitor.TriplesMerged(url, merged)
}

func (p *Pipeline) logReport(r *Report) {
	p.logger.Info("run finished",
		"seed", r.Seed,
		"links", r.Links,
		"fetched", r.Fetched,
		"duplicates", r.Duplicates,
		"merged", r.Merged,
		"failures", len(r.Failures),
		"duration", r.Duration)
}

// Store returns the graph the pipeline merges into.
func (p *Pipeline) Store() *graph.Store {
	return p.store
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
