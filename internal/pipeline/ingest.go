// Package pipeline wires the ingest and question answering flows.
//
// Ingestor turns source documents into a persisted chunk store (Process) and
// embeds that store into a vector index (Index). Retriever answers questions
// against the index: classify, embed, search, rerank, assemble, generate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/promorag/internal/chunker"
	"github.com/fyrsmithlabs/promorag/internal/config"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/metadata"
	"github.com/fyrsmithlabs/promorag/internal/parser"
	"github.com/fyrsmithlabs/promorag/internal/vectorstore"
)

var tracer = otel.Tracer("promorag.pipeline")

const (
	defaultWorkers     = 4
	defaultBatchSize   = 32
	defaultTableFactor = 1.5
)

// ErrNoChunks is returned by Index when the store holds no chunks.
var ErrNoChunks = errors.New("no chunks to index")

// DocumentSource lists and fetches documents. *parser.Source implements it.
type DocumentSource interface {
	List(ctx context.Context, location string) ([]parser.Document, error)
	Download(ctx context.Context, doc parser.Document) ([]byte, error)
}

// DocumentEmbedder embeds chunk texts.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestorConfig controls chunking and concurrency.
type IngestorConfig struct {
	// Location is the directory or afs URL listed by the source.
	Location string

	Strategy    string
	ChunkSize   int
	Overlap     int
	TableFactor float64

	// Workers bounds concurrent documents and embedding batches.
	Workers   int
	BatchSize int
}

// IngestorConfigFrom maps loaded configuration to an IngestorConfig.
func IngestorConfigFrom(cfg *config.Config) IngestorConfig {
	return IngestorConfig{
		Location:    cfg.Ingest.Source,
		Strategy:    cfg.Chunking.Strategy,
		ChunkSize:   cfg.Chunking.Size,
		Overlap:     cfg.Chunking.Overlap,
		TableFactor: cfg.Chunking.TableFactor,
		Workers:     cfg.Ingest.Workers,
		BatchSize:   cfg.Embedding.BatchSize,
	}
}

// Ingestor builds the chunk store and the vector index.
//
// Source, Parser and Store are needed by Process; Store, Embedder and Vectors
// by Index.
type Ingestor struct {
	Source    DocumentSource
	Parser    parser.Parser
	Extractor *metadata.Extractor
	Store     *corpus.Store
	Embedder  DocumentEmbedder
	Vectors   vectorstore.Index

	cfg       IngestorConfig
	recursive *chunker.Recursive
	semantic  *chunker.Semantic
	logger    *zap.Logger
}

// NewIngestor validates cfg and builds the splitters. Collaborators are set
// on the returned value.
func NewIngestor(cfg IngestorConfig, logger *zap.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.TableFactor <= 0 {
		cfg.TableFactor = defaultTableFactor
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}

	recursive, err := chunker.NewRecursive(cfg.ChunkSize, cfg.Overlap, nil, true)
	if err != nil {
		return nil, err
	}
	ing := &Ingestor{
		Extractor: metadata.NewExtractor(nil, logger),
		cfg:       cfg,
		recursive: recursive,
		logger:    logger,
	}

	switch cfg.Strategy {
	case config.StrategyRecursive, "":
	case config.StrategySemantic:
		if ing.semantic, err = chunker.NewSemantic(cfg.ChunkSize); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", cfg.Strategy)
	}
	return ing, nil
}

// Process lists, parses and chunks every document, then saves the chunks to
// Store when one is set. A document that fails to download or parse is
// logged and skipped. Chunks are ordered by document name, then position.
func (i *Ingestor) Process(ctx context.Context) ([]corpus.Chunk, error) {
	ctx, span := tracer.Start(ctx, "Ingestor.Process")
	defer span.End()

	if i.Source == nil || i.Parser == nil {
		return nil, errors.New("ingestor requires a source and a parser")
	}

	docs, err := i.Source.List(ctx, i.cfg.Location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	i.logger.Info("processing documents",
		zap.String("location", i.cfg.Location),
		zap.Int("documents", len(docs)),
	)

	results := make([][]corpus.Chunk, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for n, doc := range docs {
		g.Go(func() error {
			chunks, err := i.processDocument(gctx, doc)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				ParseFailures.Inc()
				i.logger.Error("skipping document",
					zap.String("document", doc.Name),
					zap.Error(err),
				)
				return nil
			}
			results[n] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var all []corpus.Chunk
	for _, chunks := range results {
		all = append(all, chunks...)
	}
	for _, c := range all {
		ChunksIngested.WithLabelValues(c.Meta.SourceType).Inc()
	}
	span.SetAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("chunks", len(all)),
	)

	if i.Store != nil {
		if err := i.Store.Save(all); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		i.logger.Info("chunks saved",
			zap.String("path", i.Store.Path()),
			zap.Int("chunks", len(all)),
		)
	}
	span.SetStatus(codes.Ok, "success")
	return all, nil
}

func (i *Ingestor) processDocument(ctx context.Context, doc parser.Document) ([]corpus.Chunk, error) {
	data, err := i.Source.Download(ctx, doc)
	if err != nil {
		return nil, err
	}
	blocks, err := i.Parser.Parse(ctx, doc.Name, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", doc.Name, err)
	}
	return i.ChunkDocument(doc.Name, blocks)
}

// ChunkDocument splits the blocks of one document into chunks with
// metadata. Chunk indexes count from zero across all blocks.
func (i *Ingestor) ChunkDocument(document string, blocks []corpus.Block) ([]corpus.Chunk, error) {
	var chunks []corpus.Chunk
	index := 0
	for _, block := range blocks {
		if block.Source.DocumentName == "" {
			block.Source.DocumentName = document
		}
		for _, piece := range i.splitBlock(block) {
			text := strings.TrimSpace(piece.text)
			if text == "" {
				continue
			}
			id, err := corpus.ChunkID(document, index, text)
			if err != nil {
				return nil, err
			}

			heading := block.Source.CurrentHeading
			if heading == "" {
				heading = piece.heading
			}
			in := metadata.Input{
				Text:               text,
				DocumentName:       block.Source.DocumentName,
				SourceType:         block.SourceType(),
				Page:               block.Source.PageNumber,
				DocumentHyperlinks: block.Source.DocumentHyperlinks,
				CurrentHeading:     heading,
			}
			switch block.Type {
			case corpus.BlockTable:
				in.TableHeaders = block.Headers
				in.TableRows = block.Rows
			case corpus.BlockExcelRow:
				in.TableHeaders = block.Headers
				in.ExcelRow = block.Row
			}

			meta := i.Extractor.Extract(in)
			meta.ChunkID = id
			meta.ChunkIndex = index
			chunks = append(chunks, corpus.Chunk{ID: id, Text: text, Meta: meta})
			index++
		}
	}
	return chunks, nil
}

type piece struct {
	text    string
	heading string
}

func (i *Ingestor) splitBlock(block corpus.Block) []piece {
	switch block.Type {
	case corpus.BlockTable:
		md := chunker.FormatTableToMarkdown(block.Rows, block.Headers)
		if float64(utf8.RuneCountInString(md)) <= i.cfg.TableFactor*float64(i.cfg.ChunkSize) {
			return []piece{{text: md}}
		}
		return i.splitText(md)
	case corpus.BlockExcelRow:
		return []piece{{text: corpus.RenderRow(block.Row)}}
	default:
		return i.splitText(chunker.CleanText(block.Text))
	}
}

func (i *Ingestor) splitText(text string) []piece {
	if i.semantic != nil {
		chunks := i.semantic.Split(text)
		out := make([]piece, 0, len(chunks))
		for _, c := range chunks {
			out = append(out, piece{text: c.Text, heading: c.Meta.Heading})
		}
		return out
	}
	texts := i.recursive.Split(text)
	out := make([]piece, 0, len(texts))
	for _, t := range texts {
		out = append(out, piece{text: t})
	}
	return out
}

// Index loads the chunk store, clears the vector index and fills it with
// freshly embedded chunks.
func (i *Ingestor) Index(ctx context.Context) error {
	if i.Store == nil {
		return errors.New("ingestor requires a chunk store")
	}
	chunks, err := i.Store.Load()
	if err != nil {
		return err
	}
	return i.IndexChunks(ctx, chunks)
}

// IndexChunks replaces the index content with chunks. Batches are embedded
// concurrently and added in store order.
func (i *Ingestor) IndexChunks(ctx context.Context, chunks []corpus.Chunk) error {
	ctx, span := tracer.Start(ctx, "Ingestor.IndexChunks")
	defer span.End()
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	if i.Embedder == nil || i.Vectors == nil {
		return errors.New("ingestor requires an embedder and an index")
	}
	if len(chunks) == 0 {
		return ErrNoChunks
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		end := min(start+i.cfg.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			began := time.Now()
			batch, err := i.Embedder.EmbedDocuments(gctx, texts)
			EmbeddingDuration.WithLabelValues("documents").Observe(time.Since(began).Seconds())
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("embedding chunks %d-%d: got %d vectors", start, end-1, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := i.Vectors.Reset(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("resetting index: %w", err)
	}
	if err := i.Vectors.Add(ctx, chunks, vectors); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding vectors: %w", err)
	}

	i.logger.Info("index built", zap.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "success")
	return nil
}
