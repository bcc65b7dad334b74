package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// DefaultOllamaURL is the Ollama endpoint used when none is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures an Ollama embedding client.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Dimension int
}

// Ollama embeds text with a model served by Ollama.
type Ollama struct {
	client    *api.Client
	model     string
	dimension int
	metrics   *Metrics
}

// NewOllama returns an Ollama embedding client.
func NewOllama(cfg OllamaConfig, logger *zap.Logger) (*Ollama, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	return &Ollama{
		client:    api.NewClient(base, http.DefaultClient),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		metrics:   NewMetrics(logger),
	}, nil
}

// EmbedDocuments implements Provider.
func (o *Ollama) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return o.embed(ctx, "embed_documents", texts)
}

// EmbedQuery implements Provider.
func (o *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vectors, err := o.embed(ctx, "embed_query", []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *Ollama) embed(ctx context.Context, operation string, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		o.metrics.RecordGeneration(ctx, o.model, operation, time.Since(start), len(texts), err)
	}()

	truncate := true
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model:    o.model,
		Input:    texts,
		Truncate: &truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if err := checkVectors(resp.Embeddings, len(texts), o.dimension); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// Dimension implements Provider.
func (o *Ollama) Dimension() int {
	return o.dimension
}

// Close is a no-op; the HTTP client is shared.
func (o *Ollama) Close() error {
	return nil
}
