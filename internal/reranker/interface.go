// Package reranker reorders vector search hits by combining semantic
// similarity with domain heuristics derived from chunk metadata.
package reranker

import (
	"context"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/query"
)

// Candidate is a retrieved chunk with its scores.
type Candidate struct {
	Chunk          corpus.Chunk `json:"chunk"`
	SemanticScore  float64      `json:"semantic_score"`
	HeuristicBonus float64      `json:"heuristic_bonus"`
	FinalScore     float64      `json:"final_score"`
	OriginalRank   int          `json:"original_rank"` // Position in retrieval order (0-indexed)
}

// Reranker reorders retrieval candidates for a classified query.
type Reranker interface {
	// Rerank scores candidates and returns the best of them sorted by
	// FinalScore in descending order. Ties keep retrieval order.
	//
	// The caller is responsible for ensuring ctx is not nil.
	Rerank(ctx context.Context, q string, cls query.Classification, candidates []Candidate) ([]Candidate, error)

	// Close releases any resources held by the reranker.
	Close() error
}
