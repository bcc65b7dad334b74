package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultOllamaURL is the local Ollama endpoint.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures an Ollama chat client.
type OllamaConfig struct {
	BaseURL    string
	Options    Options
	RateLimit  float64
	Burst      int
	MaxRetries int
	Timeout    time.Duration
}

// Ollama implements Client with a model served by Ollama.
type Ollama struct {
	client  *api.Client
	options Options
	retry   *retrier
}

// NewOllama creates an Ollama chat client.
func NewOllama(cfg OllamaConfig, logger *zap.Logger) (*Ollama, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Options.Model == "" {
		return nil, errors.New("llm model required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama url: %w", err)
	}

	return &Ollama{
		client:  api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		options: cfg.Options,
		retry: &retrier{
			limiter:     newLimiter(cfg.RateLimit, cfg.Burst),
			maxRetries:  cfg.MaxRetries,
			baseBackoff: defaultBaseBackoff,
			logger:      logger,
			provider:    "ollama",
		},
	}, nil
}

// Ask runs a non-streaming chat completion.
func (o *Ollama) Ask(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Ollama.Ask")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", o.options.Model),
		attribute.Int("prompt_length", len(prompt)),
	)

	stream := false
	req := &api.ChatRequest{
		Model: o.options.Model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": o.options.Temperature,
			"top_p":       o.options.TopP,
			"num_predict": o.options.MaxTokens,
		},
	}

	answer, err := o.retry.do(ctx, func(ctx context.Context) (string, error) {
		var b strings.Builder
		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			b.WriteString(resp.Message.Content)
			return nil
		})
		if err != nil {
			return "", err
		}
		if b.Len() == 0 {
			return "", errors.New("empty response from ollama")
		}
		return b.String(), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetStatus(codes.Ok, "success")
	return answer, nil
}

var _ Client = (*Ollama)(nil)
