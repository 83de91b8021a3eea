package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTripleExtractor_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewTripleExtractor(ai.NewConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPIKeyRequired))
}

func TestNewTripleExtractor_EnvVarOverridesConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	ex, err := NewTripleExtractor(ai.NewConfig(ai.WithAPIKey("config-key"), ai.WithExtractorModel("claude-test")))
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-test", ex.Descriptor().ID())
}

func messagesServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractTriples(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := messagesServer(t, http.StatusOK, map[string]any{
		"id":    "msg_1",
		"type":  "message",
		"role":  "assistant",
		"model": "claude-test",
		"content": []map[string]any{{
			"type": "text",
			"text": `{"relationships":[{"subject":"SpaceX","predicate":"founded by","object":"Elon Musk"}]}`,
		}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 10},
	})

	ex, err := NewTripleExtractor(ai.NewConfig(ai.WithAPIKey("k"), ai.WithExtractorModel("claude-test")), WithBaseURL(srv.URL))
	require.NoError(t, err)

	triples, err := ex.ExtractTriples(context.Background(), "SpaceX was founded by Elon Musk.")
	require.NoError(t, err)
	assert.Equal(t, []core.Triple{{Subject: "SpaceX", Predicate: "founded by", Object: "Elon Musk"}}, triples)
}

func TestExtractTriples_PromptTooLong(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := messagesServer(t, http.StatusBadRequest, map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    "invalid_request_error",
			"message": "prompt is too long: 250000 tokens > 200000 maximum",
		},
	})

	ex, err := NewTripleExtractor(ai.NewConfig(ai.WithAPIKey("k")), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = ex.ExtractTriples(context.Background(), "long text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInputTooLarge)
}
