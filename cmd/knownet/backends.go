package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/ai/anthropic"
	"github.com/poiesic/knownet/ai/hugot"
	"github.com/poiesic/knownet/ai/openai"
)

// backends holds the resolved capability choices for one invocation.
type backends struct {
	embedder       string
	extractor      string
	embeddingModel string // empty means the backend default
	extractorModel string // empty means the backend default
	modelDir       string
	config         *ai.Config
}

func backendsFrom(c *cli.Context, cfg *fileConfig) (*backends, error) {
	b := &backends{
		embedder:       stringSetting(c, "embedder", cfg.AI.Embedder),
		extractor:      stringSetting(c, "extractor", cfg.AI.Extractor),
		embeddingModel: stringSetting(c, "embedding-model", cfg.AI.EmbeddingModel),
		extractorModel: stringSetting(c, "extractor-model", cfg.AI.ExtractorModel),
		modelDir:       stringSetting(c, "model-dir", cfg.AI.ModelDir),
	}

	switch b.embedder {
	case openai.ProviderName, hugot.ProviderName:
	default:
		return nil, fmt.Errorf("unknown embedder %q: must be one of openai, hugot", b.embedder)
	}
	switch b.extractor {
	case openai.ProviderName, anthropic.ProviderName:
	default:
		return nil, fmt.Errorf("unknown extractor %q: must be one of openai, anthropic", b.extractor)
	}

	embeddingHost := stringSetting(c, "embedding-host", cfg.AI.EmbeddingHost)
	extractorHost := stringSetting(c, "extractor-host", cfg.AI.ExtractorHost)
	if extractorHost == "" {
		extractorHost = embeddingHost
	}

	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithExtractorHost(extractorHost),
		ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
	}
	if b.embeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(b.embeddingModel))
	}
	if b.extractorModel != "" {
		opts = append(opts, ai.WithExtractorModel(b.extractorModel))
	}
	if n := intSetting(c, "max-input-chars", cfg.AI.MaxInputChars); n > 0 {
		opts = append(opts, ai.WithMaxInputChars(n))
	}
	b.config = ai.NewConfig(opts...)
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return b, nil
}

func (b *backends) embedderDescriptor() ai.ModelDescriptor {
	if b.embedder == hugot.ProviderName {
		model := b.embeddingModel
		if model == "" {
			model = hugot.DefaultModel
		}
		return ai.ModelDescriptor{Provider: hugot.ProviderName, Model: model}
	}
	return ai.ModelDescriptor{Provider: openai.ProviderName, Model: b.config.EmbeddingModel}
}

func (b *backends) extractorDescriptor() ai.ModelDescriptor {
	if b.extractor == anthropic.ProviderName {
		model := b.extractorModel
		if model == "" {
			model = anthropic.DefaultModel
		}
		return ai.ModelDescriptor{Provider: anthropic.ProviderName, Model: model}
	}
	return ai.ModelDescriptor{Provider: openai.ProviderName, Model: b.config.ExtractorModel}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newEmbedder returns the embedder and a closer the caller must run after
// the builder is closed.
func (b *backends) newEmbedder() (ai.Embedder, io.Closer, error) {
	if b.embedder == hugot.ProviderName {
		e, err := hugot.NewEmbedder(b.embedderDescriptor().Model, b.modelDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return e, e, nil
	}
	e, err := openai.NewEmbedder(b.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return e, nopCloser{}, nil
}

func (b *backends) newExtractor(logger *slog.Logger) (ai.TripleExtractor, error) {
	var (
		e   ai.TripleExtractor
		err error
	)
	if b.extractor == anthropic.ProviderName {
		cfg := *b.config
		cfg.ExtractorModel = b.extractorDescriptor().Model
		cfg.APIKey = ""
		e, err = anthropic.NewTripleExtractor(&cfg, anthropic.WithLogger(logger))
	} else {
		e, err = openai.NewTripleExtractor(b.config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return e, nil
}
