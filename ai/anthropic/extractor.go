// Package anthropic provides a triple extractor backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
)

const (
	// ProviderName is the provider part of model descriptors built here.
	ProviderName = "anthropic"

	// DefaultModel is used when the config names no extractor model.
	DefaultModel = "claude-3-5-haiku-20241022"

	defaultMaxTokens = 2048
)

// ErrAPIKeyRequired is returned when an API key is needed but not provided.
var ErrAPIKeyRequired = errors.New("API key required")

// TripleExtractor implements ai.TripleExtractor with Claude.
type TripleExtractor struct {
	client     anthropic.Client
	model      anthropic.Model
	maxTokens  int64
	descriptor ai.ModelDescriptor
	logger     *slog.Logger
}

// Option configures a TripleExtractor.
type Option func(*settings)

type settings struct {
	baseURL   string
	maxTokens int64
	logger    *slog.Logger
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// WithMaxTokens bounds the response length.
func WithMaxTokens(n int64) Option {
	return func(s *settings) {
		s.maxTokens = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// NewTripleExtractor creates an extractor using config.ExtractorModel and
// config.APIKey. The ANTHROPIC_API_KEY environment variable takes precedence
// over the configured key.
func NewTripleExtractor(config *ai.Config, opts ...Option) (ai.TripleExtractor, error) {
	s := &settings{maxTokens: defaultMaxTokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	apiKey := config.APIKey
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY environment variable or provide via config", ErrAPIKeyRequired)
	}

	model := config.ExtractorModel
	if model == "" {
		model = DefaultModel
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(s.baseURL))
	}

	return &TripleExtractor{
		client:     anthropic.NewClient(clientOpts...),
		model:      anthropic.Model(model),
		maxTokens:  s.maxTokens,
		descriptor: ai.ModelDescriptor{Provider: ProviderName, Model: model},
		logger:     s.logger.With("component", "anthropic-extractor"),
	}, nil
}

// Descriptor identifies the extraction model.
func (e *TripleExtractor) Descriptor() ai.ModelDescriptor {
	return e.descriptor
}

// ExtractTriples asks the model for relationships in text.
func (e *TripleExtractor) ExtractTriples(ctx context.Context, text string) ([]core.Triple, error) {
	params := anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(ai.ExtractionPrompt() + "\n\nInput: " + text)),
		},
	}

	message, err := e.client.Messages.New(ctx, params)
	if err != nil {
		if ai.IsOversizeMessage(err.Error()) {
			return nil, fmt.Errorf("%w: %w", ai.ErrInputTooLarge, err)
		}
		e.logger.Error("message request failed", "err", err)
		return nil, err
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("%w: no content blocks", ai.ErrEmptyResponse)
	}
	content := message.Content[0]
	if content.Type != "text" {
		return nil, fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
	}

	triples, err := ai.ParseTripleResponse(content.Text)
	if err != nil {
		e.logger.Warn("error parsing extractor response", "response", content.Text, "err", err)
		return nil, err
	}
	e.logger.Debug("extracted triples", "count", len(triples))
	return triples, nil
}
