package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:7b", cfg.ExtractorModel)
	assert.Equal(t, DefaultMaxInputChars, cfg.MaxInputChars)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	})

	t.Run("with host sets both", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ExtractorHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithExtractorHost("http://extract:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://extract:9090/v1", cfg.ExtractorHost)
	})

	t.Run("with models and key", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithExtractorModel("gpt-4o-mini"),
			WithAPIKey("sk-test"),
			WithMaxInputChars(500),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ExtractorModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, 500, cfg.MaxInputChars)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name          string
		embeddingHost string
		extractorHost string
		wantEmbedding string
		wantExtractor string
	}{
		{
			name:          "already normalized",
			embeddingHost: "http://localhost:11434/v1",
			extractorHost: "http://localhost:11434/v1",
			wantEmbedding: "http://localhost:11434/v1",
			wantExtractor: "http://localhost:11434/v1",
		},
		{
			name:          "missing suffix",
			embeddingHost: "http://localhost:11434",
			extractorHost: "http://localhost:11434",
			wantEmbedding: "http://localhost:11434/v1",
			wantExtractor: "http://localhost:11434/v1",
		},
		{
			name:          "trailing slash",
			embeddingHost: "http://localhost:11434/",
			extractorHost: "http://extract:9090/",
			wantEmbedding: "http://localhost:11434/v1",
			wantExtractor: "http://extract:9090/v1",
		},
		{
			name:          "empty hosts stay empty",
			wantEmbedding: "",
			wantExtractor: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.embeddingHost, ExtractorHost: tt.extractorHost}
			cfg.Normalize()

			assert.Equal(t, tt.wantEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.wantExtractor, cfg.ExtractorHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ExtractorHost:  "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			ExtractorModel: "qwen2.5:7b",
		}
	}

	t.Run("valid config is normalized", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "missing embedding host", mutate: func(c *Config) { c.EmbeddingHost = "" }, field: "EmbeddingHost"},
		{name: "missing extractor host", mutate: func(c *Config) { c.ExtractorHost = "" }, field: "ExtractorHost"},
		{name: "missing embedding model", mutate: func(c *Config) { c.EmbeddingModel = "" }, field: "EmbeddingModel"},
		{name: "missing extractor model", mutate: func(c *Config) { c.ExtractorModel = "" }, field: "ExtractorModel"},
		{name: "negative max input", mutate: func(c *Config) { c.MaxInputChars = -1 }, field: "MaxInputChars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
