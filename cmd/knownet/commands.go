package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	hos "github.com/hack-pad/hackpadfs/os"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/knownet"
	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/crawl"
	"github.com/poiesic/knownet/graph"
	"github.com/poiesic/knownet/ingestion"
	"github.com/poiesic/knownet/resolve"
	"github.com/poiesic/knownet/storage/badger"
)

const defaultSnapshot = "graph.json"

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedder",
			Usage: "Embedding backend (openai, hugot)",
			Value: "openai",
		},
		&cli.StringFlag{
			Name:  "extractor",
			Usage: "Triple extraction backend (openai, anthropic)",
			Value: "openai",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "extractor-host",
			Usage: "Extraction service host URL (defaults to embedding-host if not specified)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name (backend default if empty)",
		},
		&cli.StringFlag{
			Name:  "extractor-model",
			Usage: "Extraction model name (backend default if empty)",
		},
		&cli.StringFlag{
			Name:  "model-dir",
			Usage: "Directory for downloaded local embedding models",
			Value: "models",
		},
		&cli.IntFlag{
			Name:  "max-input-chars",
			Usage: "Truncate inputs to this many characters after an input-too-large failure",
		},
		&cli.StringFlag{
			Name:  "cache-root",
			Usage: "Directory holding the embedding and extraction caches",
			Value: knownet.DefaultCacheRoot,
		},
	}
}

func crawlCommand() *cli.Command {
	flags := append(backendFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Write the graph snapshot to this JSON file",
			Value:   defaultSnapshot,
		},
		&cli.IntFlag{
			Name:  "max-concurrency",
			Usage: "Maximum concurrent page fetches",
			Value: crawl.DefaultMaxConcurrency,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum fetch attempts per page",
			Value: crawl.DefaultMaxRetries,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: crawl.DefaultRetryBaseDelay,
		},
		&cli.BoolFlag{
			Name:  "retry-client-errors",
			Usage: "Retry every 4xx response, not only 408 and 429",
		},
		&cli.IntFlag{
			Name:  "max-links",
			Usage: "Follow at most this many links from the seed page (0 for all)",
		},
		&cli.StringFlag{
			Name:  "user-agent",
			Usage: "User-Agent header sent with every fetch",
		},
		&cli.Float64Flag{
			Name:  "match-threshold",
			Usage: "Cosine similarity above which two mentions are the same entity",
			Value: float64(resolve.DefaultMatchThreshold),
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "Nearest-neighbor index (hnsw, flat)",
			Value: "hnsw",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Maximum inputs per inference batch",
			Value: 32,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent extractions (0 for half the CPUs)",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N pages",
			Value: 10,
		},
	)
	return &cli.Command{
		Name:      "crawl",
		Usage:     "Crawl the articles linked from a seed page and export the graph",
		ArgsUsage: "<seed-url>",
		Action:    runCrawl,
		Flags:     flags,
	}
}

func runCrawl(c *cli.Context) error {
	seed := c.Args().First()
	if seed == "" {
		return fmt.Errorf("seed URL is required")
	}
	cfg := configFrom(c)
	logger := slog.Default()

	be, err := backendsFrom(c, cfg)
	if err != nil {
		return err
	}
	embedder, closer, err := be.newEmbedder()
	if err != nil {
		return err
	}
	defer closer.Close()
	extractor, err := be.newExtractor(logger)
	if err != nil {
		return err
	}

	opts, err := builderOptions(c, cfg)
	if err != nil {
		return err
	}
	opts = append(opts,
		knownet.WithEmbedder(embedder),
		knownet.WithTripleExtractor(extractor),
		knownet.WithAIConfig(be.config),
		knownet.WithLogger(logger),
		knownet.WithPipelineOptions(ingestion.WithMonitor(
			ingestion.NewProgressMonitor(errWriter(c), c.Int("report-interval")))),
	)

	root := stringSetting(c, "cache-root", cfg.CacheRoot)
	builder, err := knownet.NewBuilder(root, opts...)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}
	defer builder.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	fmt.Fprintf(errWriter(c), "Seed: %s\n", seed)
	fmt.Fprintf(errWriter(c), "Embedder: %s\n", embedder.Descriptor().ID())
	fmt.Fprintf(errWriter(c), "Extractor: %s\n", extractor.Descriptor().ID())
	fmt.Fprintf(errWriter(c), "Cache: %s\n", root)
	fmt.Fprintln(errWriter(c))

	report, err := builder.Crawl(ctx, seed)
	if report == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	printReport(c.App.Writer, report, builder)

	out := stringSetting(c, "out", cfg.Snapshot)
	if exportErr := exportSnapshot(builder, out); exportErr != nil {
		return errors.Join(err, exportErr)
	}
	fmt.Fprintf(c.App.Writer, "Snapshot: %s\n", out)
	return err
}

// builderOptions maps crawl, resolver and batching settings onto the builder.
func builderOptions(c *cli.Context, cfg *fileConfig) ([]knownet.BuilderOption, error) {
	filter := crawl.DefaultLinkFilter()
	filter.MaxLinks = intSetting(c, "max-links", cfg.Crawl.MaxLinks)

	crawlOpts := []crawl.Option{
		crawl.WithMaxConcurrency(intSetting(c, "max-concurrency", cfg.Crawl.MaxConcurrency)),
		crawl.WithMaxRetries(intSetting(c, "max-retries", cfg.Crawl.MaxRetries)),
		crawl.WithRetryBaseDelay(durationSetting(c, "retry-delay", cfg.Crawl.RetryDelay)),
		crawl.WithLinkFilter(filter),
	}
	if c.Bool("retry-client-errors") || cfg.Crawl.RetryClientErrors {
		crawlOpts = append(crawlOpts, crawl.WithRetryClientErrors())
	}
	if ua := stringSetting(c, "user-agent", cfg.Crawl.UserAgent); ua != "" {
		crawlOpts = append(crawlOpts, crawl.WithUserAgent(ua))
	}

	opts := []knownet.BuilderOption{
		knownet.WithCrawlOptions(crawlOpts...),
		knownet.WithMatchThreshold(float32(floatSetting(c, "match-threshold", cfg.MatchThreshold))),
		knownet.WithCacheOptions(ingestion.WithBatchSize(intSetting(c, "batch-size", cfg.AI.BatchSize))),
	}
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, knownet.WithPipelineOptions(ingestion.WithPoolSize(workers)))
	}

	switch idx := c.String("index"); idx {
	case "hnsw":
	case "flat":
		opts = append(opts, knownet.WithIndex(resolve.NewFlatIndex()))
	default:
		return nil, fmt.Errorf("unknown index %q: must be one of hnsw, flat", idx)
	}
	return opts, nil
}

func printReport(w io.Writer, r *ingestion.Report, b *knownet.Builder) {
	stats := b.Store().Stats()
	embed, extract := b.CacheStats()

	fmt.Fprintf(w, "Links: %d  Fetched: %d  Skipped: %d  Duplicates: %d  Failed: %d\n",
		r.Links, r.Fetched, r.Skipped, r.Duplicates, len(r.Failures))
	fmt.Fprintf(w, "Triples: %d extracted, %d merged\n", r.Triples, r.Merged)
	fmt.Fprintf(w, "Graph: %d entities, %d relations\n", stats.Entities, stats.Edges)
	fmt.Fprintf(w, "Cache: embeddings %d hits / %d misses, extractions %d hits / %d misses\n",
		embed.Hits, embed.Misses, extract.Hits, extract.Misses)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed %s\n", f)
	}
	fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))
}

// osPath maps a host path onto the root of an os-backed hackpadfs.
func osPath(fsys *hos.FS, name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return fsys.FromOSPath(abs)
}

func exportSnapshot(b *knownet.Builder, name string) error {
	fsys := hos.NewFS()
	p, err := osPath(fsys, name)
	if err != nil {
		return err
	}
	return b.Export(fsys, p)
}

func neighborhoodCommand() *cli.Command {
	return &cli.Command{
		Name:      "neighborhood",
		Usage:     "Print the relations around entities in an exported graph",
		ArgsUsage: "<entity> [entity...]",
		Action:    runNeighborhood,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "graph",
				Aliases: []string{"g"},
				Usage:   "Graph snapshot written by crawl",
				Value:   defaultSnapshot,
			},
			&cli.IntFlag{
				Name:    "depth",
				Aliases: []string{"d"},
				Usage:   "Hops to follow from each entity",
				Value:   graph.DefaultDepth,
			},
		},
	}
}

func runNeighborhood(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one entity name is required")
	}
	cfg := configFrom(c)

	fsys := hos.NewFS()
	p, err := osPath(fsys, stringSetting(c, "graph", cfg.Snapshot))
	if err != nil {
		return err
	}
	snap, err := graph.ReadSnapshotFile(fsys, p)
	if err != nil {
		return err
	}
	view, err := graph.NewView(snap)
	if err != nil {
		return err
	}

	depth := intSetting(c, "depth", cfg.Depth)
	var errs []error
	for _, name := range c.Args().Slice() {
		relations, err := view.NeighborhoodOf(name, depth)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s:\n", name)
		for _, r := range relations {
			fmt.Fprintf(c.App.Writer, "  %s\n", r)
		}
	}
	return errors.Join(errs...)
}

func clearCacheCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear-cache",
		Usage:  "Remove cached embeddings and extractions for the configured models",
		Action: runClearCache,
		Flags: append(backendFlags(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Remove the whole cache directory, every model included",
			},
		),
	}
}

func runClearCache(c *cli.Context) error {
	cfg := configFrom(c)
	root := stringSetting(c, "cache-root", cfg.CacheRoot)

	if c.Bool("all") {
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("failed to remove %s: %w", root, err)
		}
		fmt.Fprintf(c.App.Writer, "Removed %s\n", root)
		return nil
	}

	be, err := backendsFrom(c, cfg)
	if err != nil {
		return err
	}
	namespaces := []ai.ModelDescriptor{be.embedderDescriptor(), be.extractorDescriptor()}
	components := []string{ai.ComponentEmbedder, ai.ComponentTripleExtractor}

	for i, d := range namespaces {
		ns := d.Namespace(components[i])
		if _, err := os.Stat(ns.Path(root)); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(c.App.Writer, "No cache for %s\n", ns)
			continue
		}
		cache, err := badger.OpenCache(root, ns, badger.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		clearErr := cache.Clear(c.Context)
		closeErr := cache.Close()
		if err := errors.Join(clearErr, closeErr); err != nil {
			return fmt.Errorf("failed to clear %s: %w", ns, err)
		}
		fmt.Fprintf(c.App.Writer, "Cleared %s\n", ns)
	}
	return nil
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
