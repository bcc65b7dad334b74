// Package vectorstore provides the nearest-neighbour index over chunk
// embeddings.
//
// Two backends implement Index: Chromem, an embedded chromem-go database
// persisted to a local directory (the default), and Qdrant, which talks to
// a Qdrant server over gRPC. Both rank by cosine similarity and keep the
// full chunk alongside its vector, so a search returns ready-to-score
// candidates without consulting the chunk store.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// Sentinel errors for index operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch is returned by Add when a vector does not match
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch is returned by Add when chunks and vectors differ
	// in count.
	ErrLengthMismatch = errors.New("chunks and vectors differ in length")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Hit is a chunk returned by a search with its cosine similarity.
type Hit struct {
	Chunk corpus.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Index stores chunk vectors and answers similarity queries.
//
// Search never fails on a query vector of the wrong dimension: it logs the
// mismatch at error level and returns no hits. Results are ordered by
// descending score.
type Index interface {
	// Add stores vectors[i] for chunks[i]. Re-adding a chunk id replaces it.
	Add(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error

	// Search returns up to k nearest chunks to vector.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Reset removes every stored vector.
	Reset(ctx context.Context) error

	// Dimension returns the vector size the index accepts.
	Dimension() int

	// Close releases resources.
	Close() error
}

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName rejects names outside ^[a-z0-9_]{1,64}$. Collection
// names become directory names for the embedded backend.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// checkBatch validates an Add call.
func checkBatch(chunks []corpus.Chunk, vectors [][]float32, dim int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d (chunk %s) has %d dimensions, index has %d",
				ErrDimensionMismatch, i, chunks[i].ID, len(v), dim)
		}
	}
	return nil
}
