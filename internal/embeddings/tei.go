package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTEIURL is the TEI endpoint used when none is configured.
const DefaultTEIURL = "http://localhost:8080"

// TEIConfig configures a TEI client.
type TEIConfig struct {
	BaseURL   string
	Model     string
	Dimension int
	// Timeout bounds a single request. Defaults to 60s.
	Timeout time.Duration
}

// TEI embeds text through a text-embeddings-inference server.
type TEI struct {
	config  TEIConfig
	client  *http.Client
	metrics *Metrics
	logger  *zap.Logger
}

// NewTEI returns a TEI client.
func NewTEI(cfg TEIConfig, logger *zap.Logger) (*TEI, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTEIURL
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TEI{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: NewMetrics(logger),
		logger:  logger,
	}, nil
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs    []string `json:"inputs"`
	Truncate  bool     `json:"truncate"`
	Normalize bool     `json:"normalize"`
}

// EmbedDocuments implements Provider.
func (t *TEI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return t.embed(ctx, "embed_documents", texts)
}

// EmbedQuery implements Provider.
func (t *TEI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vectors, err := t.embed(ctx, "embed_query", []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (t *TEI) embed(ctx context.Context, operation string, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		t.metrics.RecordGeneration(ctx, t.config.Model, operation, time.Since(start), len(texts), err)
	}()

	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	if err := checkVectors(vectors, len(texts), t.config.Dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimension implements Provider.
func (t *TEI) Dimension() int {
	return t.config.Dimension
}

// Close is a no-op for TEI since it uses HTTP.
func (t *TEI) Close() error {
	return nil
}
