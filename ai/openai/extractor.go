package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxParseAttempts = 3

// TripleExtractor implements ai.TripleExtractor using OpenAI-compatible chat APIs.
type TripleExtractor struct {
	client     llms.Model
	descriptor ai.ModelDescriptor
	logger     *slog.Logger
}

// newTripleExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTripleExtractor(config *ai.Config) (*TripleExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &TripleExtractor{
		client:     client,
		descriptor: ai.ModelDescriptor{Provider: ProviderName, Model: config.ExtractorModel},
		logger:     slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewTripleExtractor creates a new triple extractor using the provided configuration.
//
// Returns ai.TripleExtractor interface to enforce abstraction.
func NewTripleExtractor(config *ai.Config) (ai.TripleExtractor, error) {
	return newTripleExtractor(config)
}

// Descriptor identifies the extraction model.
func (e *TripleExtractor) Descriptor() ai.ModelDescriptor {
	return e.descriptor
}

// ExtractTriples extracts relationships from text using an LLM in JSON mode.
// Malformed responses are retried up to three times.
func (e *TripleExtractor) ExtractTriples(ctx context.Context, text string) ([]core.Triple, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(ai.ExtractionPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt, "err", err)
			return nil, classify(err)
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []core.Triple{}, nil
		}

		triples, err := ai.ParseTripleResponse(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		e.logger.Debug("extracted triples", "count", len(triples))
		return triples, nil
	}

	e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
	return nil, lastErr
}
