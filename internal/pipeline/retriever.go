package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/assembler"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/embeddings"
	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/query"
	"github.com/fyrsmithlabs/promorag/internal/reranker"
	"github.com/fyrsmithlabs/promorag/internal/vectorstore"
)

// Fallback answers returned instead of a generated one.
const (
	AnswerEmbeddingError = "Ошибка эмбеддинга."
	AnswerNotFound       = "Информации не найдено."
	AnswerInternalError  = "Внутренняя ошибка."
)

// Degradation reasons recorded on Answer and in DegradedAnswers.
const (
	ReasonEmbedding = "embedding"
	ReasonEmpty     = "empty"
	ReasonSearch    = "search"
	ReasonRerank    = "rerank"
	ReasonLLM       = "llm"
)

const defaultTopK = 20

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Answer is the result of a question.
type Answer struct {
	QueryID    uuid.UUID            `json:"query_id"`
	Type       query.Type           `json:"type"`
	Text       string               `json:"answer"`
	Context    string               `json:"context,omitempty"`
	Candidates []reranker.Candidate `json:"candidates"`
	Degraded   string               `json:"degraded,omitempty"`
}

// RetrieverOptions are the collaborators of a Retriever. Classifier and
// Reranker default to the built-in keyword tables; LLM is only needed by
// Ask.
type RetrieverOptions struct {
	Classifier *query.Classifier
	Embedder   QueryEmbedder
	Index      vectorstore.Index
	Reranker   reranker.Reranker
	LLM        llm.Client
	TopK       int
	Logger     *zap.Logger
}

// Retriever answers questions against a built index.
type Retriever struct {
	classifier *query.Classifier
	embedder   QueryEmbedder
	index      vectorstore.Index
	reranker   reranker.Reranker
	llm        llm.Client
	topK       int
	logger     *zap.Logger
}

// NewRetriever checks that the index holds one vector per stored chunk and
// returns a ready retriever. A mismatch fails with
// *corpus.IndexConsistencyError.
func NewRetriever(ctx context.Context, chunks []corpus.Chunk, opts RetrieverOptions) (*Retriever, error) {
	if opts.Embedder == nil || opts.Index == nil {
		return nil, errors.New("retriever requires an embedder and an index")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Classifier == nil {
		opts.Classifier = query.NewClassifier(query.DefaultKeywords())
	}
	if opts.Reranker == nil {
		opts.Reranker = reranker.NewRanker(reranker.NewScorer(query.DefaultKeyLinks()))
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	count, err := opts.Index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting index vectors: %w", err)
	}
	if err := corpus.CheckConsistency(len(chunks), count); err != nil {
		return nil, err
	}

	return &Retriever{
		classifier: opts.Classifier,
		embedder:   opts.Embedder,
		index:      opts.Index,
		reranker:   opts.Reranker,
		llm:        opts.LLM,
		topK:       opts.TopK,
		logger:     opts.Logger,
	}, nil
}

// Classify returns the query type of q.
func (r *Retriever) Classify(q string) query.Classification {
	return r.classifier.Classify(q)
}

// Search classifies q, retrieves TopK neighbours and returns the reranked
// best of them. Embedding failures wrap embeddings.ErrEmbeddingFailed.
func (r *Retriever) Search(ctx context.Context, q string) ([]reranker.Candidate, query.Classification, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Search")
	defer span.End()

	cls := r.classifier.Classify(q)
	QueryTypes.WithLabelValues(string(cls.Type)).Inc()
	span.SetAttributes(attribute.String("query_type", string(cls.Type)))

	began := time.Now()
	vector, err := r.embedder.EmbedQuery(ctx, q)
	EmbeddingDuration.WithLabelValues("query").Observe(time.Since(began).Seconds())
	if err != nil {
		if !errors.Is(err, embeddings.ErrEmbeddingFailed) {
			err = fmt.Errorf("%w: %w", embeddings.ErrEmbeddingFailed, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, cls, err
	}

	hits, err := r.index.Search(ctx, vector, r.topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, cls, &stageError{reason: ReasonSearch, err: err}
	}
	if len(hits) == 0 {
		span.SetStatus(codes.Ok, "no hits")
		return []reranker.Candidate{}, cls, nil
	}

	candidates := make([]reranker.Candidate, 0, len(hits))
	for n, h := range hits {
		candidates = append(candidates, reranker.Candidate{
			Chunk:         h.Chunk,
			SemanticScore: h.Score,
			OriginalRank:  n,
		})
	}

	began = time.Now()
	ranked, err := r.reranker.Rerank(ctx, q, cls, candidates)
	RerankDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, cls, &stageError{reason: ReasonRerank, err: err}
	}

	span.SetAttributes(
		attribute.Int("hits", len(hits)),
		attribute.Int("candidates", len(ranked)),
	)
	span.SetStatus(codes.Ok, "success")
	return ranked, cls, nil
}

// Ask answers question, optionally continuing a dialogue. Collaborator
// failures never surface as errors: the answer text is replaced by a
// fallback message and Degraded names the failing stage.
func (r *Retriever) Ask(ctx context.Context, question string, history ...llm.Turn) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "Retriever.Ask")
	defer span.End()

	ans := &Answer{QueryID: uuid.New(), Candidates: []reranker.Candidate{}}
	span.SetAttributes(attribute.String("query_id", ans.QueryID.String()))
	defer func() { r.logInteraction(question, ans) }()

	ranked, cls, err := r.Search(ctx, question)
	ans.Type = cls.Type
	if err != nil {
		reason := ReasonEmbedding
		ans.Text = AnswerEmbeddingError
		var se *stageError
		if errors.As(err, &se) {
			reason = se.reason
			ans.Text = AnswerInternalError
		}
		r.degrade(ans, reason, err)
		return ans, nil
	}
	ans.Candidates = ranked
	if len(ranked) == 0 {
		ans.Text = AnswerNotFound
		r.degrade(ans, ReasonEmpty, nil)
		return ans, nil
	}

	ans.Context = assembler.Assemble(ranked)
	if r.llm == nil {
		ans.Text = AnswerInternalError
		r.degrade(ans, ReasonLLM, errors.New("no llm client configured"))
		return ans, nil
	}
	text, err := r.llm.Ask(ctx, llm.BuildPrompt(ans.Context, question, history...), llm.SystemPrompt)
	if err != nil {
		span.RecordError(err)
		ans.Text = AnswerInternalError
		r.degrade(ans, ReasonLLM, err)
		return ans, nil
	}
	ans.Text = strings.TrimSpace(text)
	span.SetStatus(codes.Ok, "success")
	return ans, nil
}

func (r *Retriever) degrade(ans *Answer, reason string, err error) {
	ans.Degraded = reason
	DegradedAnswers.WithLabelValues(reason).Inc()
	if err != nil {
		r.logger.Error("answer degraded",
			zap.String("query_id", ans.QueryID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func (r *Retriever) logInteraction(question string, ans *Answer) {
	ids := make([]string, 0, len(ans.Candidates))
	scores := make([]float64, 0, len(ans.Candidates))
	for _, c := range ans.Candidates {
		ids = append(ids, c.Chunk.ID)
		scores = append(scores, c.FinalScore)
	}
	r.logger.Info("interaction",
		zap.String("query_id", ans.QueryID.String()),
		zap.String("query_type", string(ans.Type)),
		zap.String("question", question),
		zap.Strings("chunk_ids", ids),
		zap.Float64s("scores", scores),
		zap.Int("answer_length", len(ans.Text)),
		zap.String("degraded", ans.Degraded),
	)
}

// stageError marks a failure after the query was embedded.
type stageError struct {
	reason string
	err    error
}

func (e *stageError) Error() string { return e.reason + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }
