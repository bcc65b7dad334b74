package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

const (
	providerQdrant = "qdrant"

	payloadChunkID = "chunk_id"
	payloadText    = "text"
	payloadMeta    = "meta"

	upsertBatchSize = 256
)

var qdrantTracer = otel.Tracer("promorag.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (not the 6333 HTTP port).
	// Default: 6334
	Port int

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Collection is the collection holding the chunks.
	// Default: "promorag_chunks"
	Collection string

	// Dimension is the vector size, normally the embedder's.
	Dimension int

	// MaxRetries for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt.
	// Default: 1s
	RetryBackoff time.Duration

	// MaxMessageSize bounds gRPC messages in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "promorag_chunks"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Qdrant implements Index on a Qdrant server.
//
// Point ids are name-based UUIDs derived from chunk ids, so re-indexing the
// same corpus overwrites points instead of duplicating them. The payload
// carries the chunk id, text and JSON metadata.
type Qdrant struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrant connects to Qdrant and ensures the collection exists with the
// configured dimension and cosine distance.
func NewQdrant(ctx context.Context, config QdrantConfig, logger *zap.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)", zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s := &Qdrant{client: client, config: config, logger: logger}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(hctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant index ready",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
	)
	return s, nil
}

func (s *Qdrant) ensureCollection(ctx context.Context) error {
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, s.config.Collection)
		return err
	})
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx)
}

func (s *Qdrant) createCollection(ctx context.Context) error {
	err := s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.Dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on transient
// gRPC errors.
func (s *Qdrant) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}
		s.logger.Warn("retrying qdrant operation",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// PointID returns the Qdrant point UUID for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// Add upserts chunk vectors in batches.
func (s *Qdrant) Add(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.Add")
	defer span.End()
	span.SetAttributes(
		attribute.Int("chunk_count", len(chunks)),
		attribute.String("collection", s.config.Collection),
	)

	if err := checkBatch(chunks, vectors, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			meta, err := json.Marshal(chunks[i].Meta)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", chunks[i].ID, err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(chunks[i].ID)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: map[string]*qdrant.Value{
					payloadChunkID: qdrant.NewValueString(chunks[i].ID),
					payloadText:    qdrant.NewValueString(chunks[i].Text),
					payloadMeta:    qdrant.NewValueString(string(meta)),
				},
			})
		}

		err := s.retryOperation(ctx, "upsert", func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: s.config.Collection,
				Wait:           qdrant.PtrOf(true),
				Points:         points,
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("upserting points to %s: %w", s.config.Collection, err)
		}
		VectorsAdded.WithLabelValues(providerQdrant).Add(float64(len(points)))
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns the k most similar chunks.
func (s *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.Search")
	defer span.End()
	defer observeSearch(providerQdrant, time.Now())
	span.SetAttributes(attribute.Int("k", k))

	if len(vector) != s.config.Dimension {
		DimensionMismatches.WithLabelValues(providerQdrant).Inc()
		s.logger.Error("query vector dimension mismatch",
			zap.Int("got", len(vector)),
			zap.Int("want", s.config.Dimension),
		)
		return []Hit{}, nil
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	var points []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.Collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		chunk, err := chunkFromPayload(p.GetPayload())
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Chunk: chunk, Score: float64(p.GetScore())})
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

func chunkFromPayload(payload map[string]*qdrant.Value) (corpus.Chunk, error) {
	chunk := corpus.Chunk{
		ID:   payload[payloadChunkID].GetStringValue(),
		Text: payload[payloadText].GetStringValue(),
	}
	if raw := payload[payloadMeta].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &chunk.Meta); err != nil {
			return corpus.Chunk{}, fmt.Errorf("decoding metadata for %s: %w", chunk.ID, err)
		}
	}
	return chunk, nil
}

// Count returns the exact number of points in the collection.
func (s *Qdrant) Count(ctx context.Context) (int, error) {
	var n uint64
	err := s.retryOperation(ctx, "count", func() error {
		var err error
		n, err = s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.config.Collection,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("counting points in %s: %w", s.config.Collection, err)
	}
	return int(n), nil
}

// Reset drops and recreates the collection.
func (s *Qdrant) Reset(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.Reset")
	defer span.End()

	err := s.retryOperation(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, s.config.Collection)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting collection %s: %w", s.config.Collection, err)
	}
	return s.createCollection(ctx)
}

// Dimension returns the vector size.
func (s *Qdrant) Dimension() int {
	return s.config.Dimension
}

// Close closes the gRPC connection.
func (s *Qdrant) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
