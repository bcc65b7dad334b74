package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/config"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/embeddings"
	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/logging"
	"github.com/fyrsmithlabs/promorag/internal/metadata"
	"github.com/fyrsmithlabs/promorag/internal/parser"
	"github.com/fyrsmithlabs/promorag/internal/pipeline"
	"github.com/fyrsmithlabs/promorag/internal/query"
	"github.com/fyrsmithlabs/promorag/internal/reranker"
	"github.com/fyrsmithlabs/promorag/internal/telemetry"
	"github.com/fyrsmithlabs/promorag/internal/vectorstore"
	"github.com/fyrsmithlabs/promorag/internal/vocabulary"
)

// app holds the process-wide dependencies of a command.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry

	closers []func() error
}

// newApp loads configuration and starts logging and telemetry.
func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(config.Options{File: flags.configFile, DotEnv: flags.envFile})
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, err
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	logCfg.Output.OTEL = tel.IsEnabled()
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, reason := range tel.Degraded() {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}

	return &app{cfg: cfg, logger: logger, telemetry: tel}, nil
}

func (a *app) zapLogger() *zap.Logger {
	return a.logger.Underlying()
}

// Close releases dependencies in reverse order, then flushes telemetry and
// the logger.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	errs = append(errs, a.telemetry.Shutdown(context.WithoutCancel(ctx)))
	errs = append(errs, a.logger.Sync())
	return errors.Join(errs...)
}

func (a *app) vocabulary() (*vocabulary.Vocabulary, error) {
	if a.cfg.Vocabulary.File == "" {
		return vocabulary.Default(), nil
	}
	return vocabulary.LoadFile(a.cfg.Vocabulary.File)
}

func (a *app) store() *corpus.Store {
	return corpus.NewStore(a.cfg.Ingest.Output)
}

func (a *app) embedder() (embeddings.Provider, error) {
	c := a.cfg.Embedding
	emb, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  c.Provider,
		Model:     c.Model,
		BaseURL:   c.BaseURL,
		CacheDir:  c.CacheDir,
		Dimension: c.Dimension,
	}, a.zapLogger())
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	a.closers = append(a.closers, emb.Close)
	return emb, nil
}

func (a *app) index(ctx context.Context, dimension int) (vectorstore.Index, error) {
	idx, err := vectorstore.NewIndex(ctx, a.cfg.VectorStore, dimension, a.zapLogger())
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	a.closers = append(a.closers, idx.Close)
	return idx, nil
}

// ingestor builds an Ingestor. withIndex adds the embedder and the vector
// index needed by Index.
func (a *app) ingestor(ctx context.Context, withIndex bool) (*pipeline.Ingestor, error) {
	ing, err := pipeline.NewIngestor(pipeline.IngestorConfigFrom(a.cfg), a.zapLogger())
	if err != nil {
		return nil, err
	}
	ing.Store = a.store()

	if !withIndex {
		vocab, err := a.vocabulary()
		if err != nil {
			return nil, err
		}
		registry := parser.NewRegistry(a.zapLogger())
		ing.Source = parser.NewSource(registry)
		ing.Parser = registry
		ing.Extractor = metadata.NewExtractor(vocab, a.zapLogger())
		return ing, nil
	}

	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	idx, err := a.index(ctx, emb.Dimension())
	if err != nil {
		return nil, err
	}
	ing.Embedder = emb
	ing.Vectors = idx
	return ing, nil
}

func (a *app) classifier() *query.Classifier {
	return query.NewClassifier(query.DefaultKeywords())
}

func (a *app) ranker() *reranker.Ranker {
	r := reranker.NewRanker(reranker.NewScorer(query.DefaultKeyLinks()))
	c := a.cfg.Reranker
	if c.Weight > 0 {
		r.Weight = c.Weight
	}
	if c.Cap > 0 {
		r.Cap = c.Cap
	}
	if c.TopN > 0 {
		r.TopN = c.TopN
	}
	return r
}

// retriever opens the chunk store and the index and checks they agree.
// withLLM adds the answer generator needed by Ask.
func (a *app) retriever(ctx context.Context, withLLM bool) (*pipeline.Retriever, error) {
	chunks, err := a.store().Load()
	if err != nil {
		return nil, err
	}
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	idx, err := a.index(ctx, emb.Dimension())
	if err != nil {
		return nil, err
	}

	opts := pipeline.RetrieverOptions{
		Classifier: a.classifier(),
		Embedder:   emb,
		Index:      idx,
		Reranker:   a.ranker(),
		TopK:       a.cfg.Retrieval.TopK,
		Logger:     a.zapLogger(),
	}
	if withLLM {
		if opts.LLM, err = llm.NewClient(a.cfg.LLM, a.zapLogger()); err != nil {
			return nil, fmt.Errorf("creating llm client: %w", err)
		}
	}
	return pipeline.NewRetriever(ctx, chunks, opts)
}
