package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

const (
	providerChromem = "chromem"
	metaKey         = "meta"
)

var chromemTracer = otel.Tracer("promorag.vectorstore.chromem")

// errNoEmbeddingFunc is returned if chromem ever tries to embed text itself.
// Every document and query arrives with a precomputed vector.
var errNoEmbeddingFunc = errors.New("chromem embedding function disabled: vectors must be precomputed")

// ChromemConfig holds configuration for the embedded index.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps the index in memory.
	Path string

	// Compress enables gzip compression of persisted documents.
	Compress bool

	// Collection is the collection holding the chunks.
	// Default: "promorag_chunks"
	Collection string

	// Dimension is the vector size, normally the embedder's.
	Dimension int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "promorag_chunks"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// Chromem implements Index on chromem-go.
type Chromem struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	mu         sync.RWMutex
	collection *chromem.Collection
}

// NewChromem opens or creates the embedded index.
func NewChromem(config ChromemConfig, logger *zap.Logger) (*Chromem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem DB: %w", err)
		}
		config.Path = path
	}

	s := &Chromem{db: db, config: config, logger: logger}
	if err := s.open(); err != nil {
		return nil, err
	}

	logger.Info("chromem index ready",
		zap.String("path", config.Path),
		zap.Bool("compress", config.Compress),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
		zap.Int("count", s.collection.Count()),
	)
	return s, nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (s *Chromem) open() error {
	c, err := s.db.GetOrCreateCollection(s.config.Collection, nil, rejectEmbedding)
	if err != nil {
		return fmt.Errorf("opening collection %s: %w", s.config.Collection, err)
	}
	s.collection = c
	return nil
}

func (s *Chromem) current() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// Add stores chunk vectors. The chunk text is the document content and the
// metadata is kept as JSON.
func (s *Chromem) Add(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error {
	ctx, span := chromemTracer.Start(ctx, "Chromem.Add")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if err := checkBatch(chunks, vectors, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", c.ID, err)
		}
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  map[string]string{metaKey: string(meta)},
			Embedding: vectors[i],
		}
	}

	if err := s.current().AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}
	VectorsAdded.WithLabelValues(providerChromem).Add(float64(len(docs)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns the k most similar chunks.
func (s *Chromem) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	ctx, span := chromemTracer.Start(ctx, "Chromem.Search")
	defer span.End()
	defer observeSearch(providerChromem, time.Now())
	span.SetAttributes(attribute.Int("k", k))

	if len(vector) != s.config.Dimension {
		DimensionMismatches.WithLabelValues(providerChromem).Inc()
		s.logger.Error("query vector dimension mismatch",
			zap.Int("got", len(vector)),
			zap.Int("want", s.config.Dimension),
		)
		return []Hit{}, nil
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	collection := s.current()
	// chromem requires nResults <= document count.
	count := collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	k = min(k, count)

	results, err := collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		chunk := corpus.Chunk{ID: r.ID, Text: r.Content}
		if raw, ok := r.Metadata[metaKey]; ok {
			if err := json.Unmarshal([]byte(raw), &chunk.Meta); err != nil {
				return nil, fmt.Errorf("decoding metadata for %s: %w", r.ID, err)
			}
		}
		hits = append(hits, Hit{Chunk: chunk, Score: float64(r.Similarity)})
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// Count returns the number of stored vectors.
func (s *Chromem) Count(context.Context) (int, error) {
	return s.current().Count(), nil
}

// Reset drops and recreates the collection.
func (s *Chromem) Reset(ctx context.Context) error {
	_, span := chromemTracer.Start(ctx, "Chromem.Reset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.config.Collection); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting collection %s: %w", s.config.Collection, err)
	}
	return s.open()
}

// Dimension returns the vector size.
func (s *Chromem) Dimension() int {
	return s.config.Dimension
}

// Close is a no-op; persistent writes happen on Add.
func (s *Chromem) Close() error {
	return nil
}
