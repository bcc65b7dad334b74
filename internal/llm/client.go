// Package llm generates answers from an assembled document context.
//
// Client is implemented by OpenAI, which speaks the OpenAI chat completions
// protocol (Together AI and compatible gateways), and by Ollama for local
// models. Both are rate limited and retry transient failures with
// exponential backoff. Any failure surfaces as ErrUnavailable so callers can
// degrade the answer without inspecting provider errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/promorag/internal/config"
)

// ErrUnavailable wraps every failure to obtain an answer.
var ErrUnavailable = errors.New("llm unavailable")

var tracer = otel.Tracer("promorag.llm")

const (
	defaultTimeout     = 90 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	defaultRateLimit   = 1.0
	defaultBurst       = 1
)

// Client answers a prompt under a system prompt.
type Client interface {
	Ask(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Options are generation parameters shared by all providers.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// NewClient creates the Client selected by cfg.Provider.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey.Value(),
			Options:    optionsFrom(cfg),
			RateLimit:  cfg.RateLimit,
			Burst:      cfg.RateBurst,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout.Duration(),
		}, logger)
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Options:    optionsFrom(cfg),
			RateLimit:  cfg.RateLimit,
			Burst:      cfg.RateBurst,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout.Duration(),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (supported: openai, ollama)", cfg.Provider)
	}
}

func optionsFrom(cfg config.LLMConfig) Options {
	return Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	}
}

// newLimiter returns a token bucket limiter. A non-positive limit disables
// limiting.
func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

// retrier runs a call under the rate limiter, retrying failures with
// exponential backoff. Context errors are never retried.
type retrier struct {
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
	provider    string
}

func (r *retrier) do(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %w", ErrUnavailable, err)
		}

		answer, err := call(ctx)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		r.logger.Warn("llm request failed",
			zap.String("provider", r.provider),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("%w: max retries exceeded: %w", ErrUnavailable, lastErr)
}
