package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promorag/internal/config"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func newTestOpenAI(t *testing.T, url string, retries int) *OpenAI {
	t.Helper()
	c, err := NewOpenAI(OpenAIConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Options:    Options{Model: "test-model", Temperature: 0.4, TopP: 0.95, MaxTokens: 1024},
		MaxRetries: retries,
	}, nil)
	require.NoError(t, err)
	c.retry.baseBackoff = time.Millisecond
	return c
}

func TestOpenAI_Ask(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"top_p"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Ответ: @promo_lead"))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv.URL, 0)
	answer, err := c.Ask(context.Background(), "PROMPT", "SYSTEM")
	require.NoError(t, err)

	assert.Equal(t, "Ответ: @promo_lead", answer)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 1e-9)
	assert.InDelta(t, 0.95, got.TopP, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "SYSTEM", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "PROMPT", got.Messages[1].Content)
}

func TestOpenAI_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("ok"))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv.URL, 2)
	answer, err := c.Ask(context.Background(), "p", "s")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_FailureIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv.URL, 1)
	_, err := c.Ask(context.Background(), "p", "s")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("late"))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv.URL, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Ask(ctx, "p", "s")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOpenAI_Validation(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Options: Options{Model: "m"}}, nil)
	assert.Error(t, err, "missing key")

	_, err = NewOpenAI(OpenAIConfig{APIKey: "k"}, nil)
	assert.Error(t, err, "missing model")
}

func TestOllama_Ask(t *testing.T) {
	var got struct {
		Model    string         `json:"model"`
		Stream   *bool          `json:"stream"`
		Options  map[string]any `json:"options"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      "llama3",
			"created_at": "2024-01-01T00:00:00Z",
			"message":    map[string]any{"role": "assistant", "content": "Срок: 24 часа"},
			"done":       true,
		})
	}))
	defer srv.Close()

	c, err := NewOllama(OllamaConfig{
		BaseURL: srv.URL,
		Options: Options{Model: "llama3", Temperature: 0.4, TopP: 0.95, MaxTokens: 256},
	}, nil)
	require.NoError(t, err)

	answer, err := c.Ask(context.Background(), "PROMPT", "SYSTEM")
	require.NoError(t, err)
	assert.Equal(t, "Срок: 24 часа", answer)

	assert.Equal(t, "llama3", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	assert.InDelta(t, 256, got.Options["num_predict"], 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "PROMPT", got.Messages[1].Content)
}

func TestNewClient(t *testing.T) {
	cfg := config.Default().LLM
	cfg.APIKey = "k"

	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	cfg.Provider = "ollama"
	c, err = NewClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	cfg.Provider = "gemini"
	_, err = NewClient(cfg, nil)
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	assert.True(t, newLimiter(0, 0).Allow())
	l := newLimiter(1, 0)
	assert.Equal(t, 1, l.Burst())
}
