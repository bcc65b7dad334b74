package reranker

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/promorag/internal/query"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// Defaults for Ranker.
const (
	DefaultWeight = 0.4
	DefaultCap    = MaxBonus
	DefaultTopN   = 7
)

// Ranker combines semantic scores with heuristic bonuses.
type Ranker struct {
	Scorer *Scorer
	// Weight scales the normalized bonus.
	Weight float64
	// Cap normalizes the bonus into [0, 1].
	Cap float64
	// TopN bounds the result; zero or less keeps every candidate.
	TopN int
}

// NewRanker returns a ranker with the default weight, cap and size.
func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{Scorer: scorer, Weight: DefaultWeight, Cap: DefaultCap, TopN: DefaultTopN}
}

// FinalScore boosts sem multiplicatively by the normalized bonus:
// (1+sem)*(1+W*clamp(bonus/Cap, 0, 1)) - 1. A NaN result falls back to sem.
func (r *Ranker) FinalScore(sem, bonus float64) float64 {
	norm := 0.0
	if r.Cap > 0 {
		norm = math.Min(math.Max(bonus/r.Cap, 0), 1)
	}
	final := (1+sem)*(1+r.Weight*norm) - 1
	if math.IsNaN(final) {
		return sem
	}
	return final
}

// Rank scores candidates for q and returns the top TopN by FinalScore.
// The sort is stable, so equal scores keep retrieval order.
func (r *Ranker) Rank(q string, cls query.Classification, candidates []Candidate) []Candidate {
	queryLower := strings.ToLower(strings.TrimSpace(q))
	scorer := r.Scorer
	if scorer == nil {
		scorer = NewScorer(nil)
	}

	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.OriginalRank = i
		c.HeuristicBonus = scorer.Bonus(c.Chunk, queryLower, cls.Type, cls.LinkTarget())
		c.FinalScore = r.FinalScore(c.SemanticScore, c.HeuristicBonus)
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	if r.TopN > 0 && len(ranked) > r.TopN {
		ranked = ranked[:r.TopN]
	}
	return ranked
}

// Rerank implements Reranker.
func (r *Ranker) Rerank(ctx context.Context, q string, cls query.Classification, candidates []Candidate) ([]Candidate, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Rank(q, cls, candidates), nil
}

// Close implements Reranker. Ranker holds no resources.
func (r *Ranker) Close() error {
	return nil
}
