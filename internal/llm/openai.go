package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultOpenAIBaseURL is the Together AI OpenAI-compatible endpoint.
const DefaultOpenAIBaseURL = "https://api.together.xyz/v1"

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string `json:"-"`
	Options Options

	// RateLimit is requests per second; zero disables limiting.
	RateLimit  float64
	Burst      int
	MaxRetries int
	Timeout    time.Duration
}

// OpenAI implements Client over the OpenAI chat completions protocol.
type OpenAI struct {
	llm     *openai.LLM
	options Options
	retry   *retrier
	logger  *zap.Logger
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key required")
	}
	if cfg.Options.Model == "" {
		return nil, errors.New("llm model required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	model, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Options.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAI{
		llm:     model,
		options: cfg.Options,
		retry: &retrier{
			limiter:     newLimiter(cfg.RateLimit, cfg.Burst),
			maxRetries:  cfg.MaxRetries,
			baseBackoff: defaultBaseBackoff,
			logger:      logger,
			provider:    "openai",
		},
		logger: logger,
	}, nil
}

// Ask sends the system and user messages and returns the first choice.
func (o *OpenAI) Ask(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Ask")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", o.options.Model),
		attribute.Int("prompt_length", len(prompt)),
	)

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: prompt}}},
	}

	answer, err := o.retry.do(ctx, func(ctx context.Context) (string, error) {
		resp, err := o.llm.GenerateContent(ctx, messages,
			llms.WithTemperature(o.options.Temperature),
			llms.WithTopP(o.options.TopP),
			llms.WithMaxTokens(o.options.MaxTokens),
		)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty response from API")
		}
		return resp.Choices[0].Content, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("answer_length", len(answer)))
	span.SetStatus(codes.Ok, "success")
	return answer, nil
}

var _ Client = (*OpenAI)(nil)
