// Package config provides configuration loading for promorag.
//
// Values are resolved from defaults, an optional YAML file and PROMORAG_*
// environment variables, in increasing order of precedence. An optional
// .env file is read into the process environment first.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete promorag configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Reranker    RerankerConfig    `koanf:"reranker"`
	LLM         LLMConfig         `koanf:"llm"`
	Vocabulary  VocabularyConfig  `koanf:"vocabulary"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RequestTimeout  Duration `koanf:"request_timeout"`
}

// Chunking strategies.
const (
	StrategyRecursive = "recursive"
	StrategySemantic  = "semantic"
)

// ChunkingConfig controls how block text is split.
type ChunkingConfig struct {
	Strategy string `koanf:"strategy"`
	Size     int    `koanf:"size"`
	Overlap  int    `koanf:"overlap"`
	// TableFactor is the multiple of Size up to which a rendered table is
	// kept as a single chunk.
	TableFactor float64 `koanf:"table_factor"`
}

// IngestConfig controls document processing.
type IngestConfig struct {
	Source  string `koanf:"source"`
	Output  string `koanf:"output"`
	Workers int    `koanf:"workers"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string   `koanf:"provider"`
	Model     string   `koanf:"model"`
	BaseURL   string   `koanf:"base_url"`
	CacheDir  string   `koanf:"cache_dir"`
	BatchSize int      `koanf:"batch_size"`
	Dimension int      `koanf:"dimension"`
	Timeout   Duration `koanf:"timeout"`
}

// VectorStoreConfig selects the vector index backend.
type VectorStoreConfig struct {
	Provider   string `koanf:"provider"`
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	Compress   bool   `koanf:"compress"`

	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantTLS    bool   `koanf:"qdrant_tls"`
	QdrantAPIKey Secret `koanf:"qdrant_api_key"`
}

// RetrievalConfig controls nearest-neighbour search.
type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
}

// RerankerConfig controls hybrid scoring.
type RerankerConfig struct {
	Weight float64 `koanf:"weight"`
	Cap    float64 `koanf:"cap"`
	TopN   int     `koanf:"top_n"`
}

// LLMConfig selects the answer generator.
type LLMConfig struct {
	Provider    string   `koanf:"provider"`
	BaseURL     string   `koanf:"base_url"`
	Model       string   `koanf:"model"`
	APIKey      Secret   `koanf:"api_key"`
	Temperature float64  `koanf:"temperature"`
	TopP        float64  `koanf:"top_p"`
	MaxTokens   int      `koanf:"max_tokens"`
	RateLimit   float64  `koanf:"rate_limit"`
	RateBurst   int      `koanf:"rate_burst"`
	MaxRetries  int      `koanf:"max_retries"`
	Timeout     Duration `koanf:"timeout"`
}

// VocabularyConfig points at an optional TOML vocabulary file. An empty
// path selects the built-in vocabulary.
type VocabularyConfig struct {
	File string `koanf:"file"`
}

// LoggingConfig holds the subset of logger settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds the subset of OpenTelemetry settings exposed to
// users.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
			RequestTimeout:  Duration(2 * time.Minute),
		},
		Chunking: ChunkingConfig{
			Strategy:    StrategyRecursive,
			Size:        800,
			Overlap:     200,
			TableFactor: 1.5,
		},
		Ingest: IngestConfig{
			Source:  "data",
			Output:  "data/processed/chunks.json",
			Workers: 4,
		},
		Embedding: EmbeddingConfig{
			Provider:  "tei",
			Model:     "BAAI/bge-m3",
			BaseURL:   "http://localhost:8081",
			BatchSize: 32,
			Timeout:   Duration(60 * time.Second),
		},
		VectorStore: VectorStoreConfig{
			Provider:   "chromem",
			Path:       "data/index",
			Collection: "promorag_chunks",
			Compress:   true,
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Retrieval: RetrievalConfig{
			TopK: 20,
		},
		Reranker: RerankerConfig{
			Weight: 0.4,
			Cap:    100,
			TopN:   7,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.together.xyz/v1",
			Model:       "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
			Temperature: 0.4,
			TopP:        0.95,
			MaxTokens:   1024,
			RateLimit:   1,
			RateBurst:   1,
			MaxRetries:  3,
			Timeout:     Duration(90 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "promorag",
			Insecure:    true,
			SampleRate:  1.0,
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Server, &c.Chunking, &c.Ingest, &c.Embedding, &c.VectorStore,
		&c.Retrieval, &c.Reranker, &c.LLM, &c.Logging, &c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Reranker.TopN > c.Retrieval.TopK {
		return fmt.Errorf("%w: reranker.top_n (%d) exceeds retrieval.top_k (%d)",
			ErrInvalidConfig, c.Reranker.TopN, c.Retrieval.TopK)
	}
	return nil
}

// Validate validates the server section.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: server.port %d must be 1-65535", ErrInvalidConfig, c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the chunking section.
func (c *ChunkingConfig) Validate() error {
	switch c.Strategy {
	case StrategyRecursive, StrategySemantic:
	default:
		return fmt.Errorf("%w: chunking.strategy %q (supported: recursive, semantic)", ErrInvalidConfig, c.Strategy)
	}
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", ErrInvalidConfig)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", ErrInvalidConfig)
	}
	if c.TableFactor < 1 {
		return fmt.Errorf("%w: chunking.table_factor must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the ingest section.
func (c *IngestConfig) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("%w: ingest.output is required", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: ingest.workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the embedding section.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "tei", "ollama", "fastembed":
	default:
		return fmt.Errorf("%w: embedding.provider %q (supported: tei, ollama, fastembed)", ErrInvalidConfig, c.Provider)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("%w: embedding.dimension must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the vector store section.
func (c *VectorStoreConfig) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: vectorstore.collection is required", ErrInvalidConfig)
	}
	switch c.Provider {
	case "chromem":
		return nil
	case "qdrant":
		if c.QdrantHost == "" {
			return fmt.Errorf("%w: vectorstore.qdrant_host is required", ErrInvalidConfig)
		}
		if c.QdrantPort < 1 || c.QdrantPort > 65535 {
			return fmt.Errorf("%w: vectorstore.qdrant_port %d must be 1-65535", ErrInvalidConfig, c.QdrantPort)
		}
		return nil
	default:
		return fmt.Errorf("%w: vectorstore.provider %q (supported: chromem, qdrant)", ErrInvalidConfig, c.Provider)
	}
}

// Validate validates the retrieval section.
func (c *RetrievalConfig) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the reranker section.
func (c *RerankerConfig) Validate() error {
	if c.Weight < 0 {
		return fmt.Errorf("%w: reranker.weight must not be negative", ErrInvalidConfig)
	}
	if c.Cap <= 0 {
		return fmt.Errorf("%w: reranker.cap must be positive", ErrInvalidConfig)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("%w: reranker.top_n must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the LLM section.
func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: llm.provider %q (supported: openai, ollama)", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: llm.model is required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be in [0, 2]", ErrInvalidConfig)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("%w: llm.top_p must be in (0, 1]", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalidConfig)
	}
	if c.RateLimit < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("%w: llm.rate_limit and llm.max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate validates the logging section.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("%w: logging.format %q (supported: json, console)", ErrInvalidConfig, c.Format)
	}
	return nil
}

// Validate validates the telemetry section.
func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: telemetry.endpoint required when telemetry is enabled", ErrInvalidConfig)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("%w: telemetry.service_name required when telemetry is enabled", ErrInvalidConfig)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("%w: telemetry.sample_rate must be in [0, 1]", ErrInvalidConfig)
	}
	return nil
}
