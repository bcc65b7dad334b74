package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 1.5, cfg.Chunking.TableFactor)
	assert.Equal(t, 20, cfg.Retrieval.TopK)
	assert.Equal(t, 0.4, cfg.Reranker.Weight)
	assert.Equal(t, 100.0, cfg.Reranker.Cap)
	assert.Equal(t, 7, cfg.Reranker.TopN)
	assert.Equal(t, 0.4, cfg.LLM.Temperature)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.95, cfg.LLM.TopP)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"unknown strategy", func(c *Config) { c.Chunking.Strategy = "tokens" }, "chunking.strategy"},
		{"overlap not below size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, "chunking.overlap"},
		{"table factor below one", func(c *Config) { c.Chunking.TableFactor = 0.5 }, "table_factor"},
		{"no workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.provider"},
		{"zero batch", func(c *Config) { c.Embedding.BatchSize = 0 }, "batch_size"},
		{"unknown store", func(c *Config) { c.VectorStore.Provider = "faiss" }, "vectorstore.provider"},
		{"qdrant without host", func(c *Config) {
			c.VectorStore.Provider = "qdrant"
			c.VectorStore.QdrantHost = ""
		}, "qdrant_host"},
		{"zero cap", func(c *Config) { c.Reranker.Cap = 0 }, "reranker.cap"},
		{"top n above top k", func(c *Config) { c.Reranker.TopN = 50 }, "exceeds retrieval.top_k"},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bedrock" }, "llm.provider"},
		{"top p out of range", func(c *Config) { c.LLM.TopP = 1.5 }, "top_p"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "sk-live")
	assert.Equal(t, "sk-live-123", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
