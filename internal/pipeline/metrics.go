package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksIngested counts chunks produced by Process.
	// Labels: source_type (text_chunk, table_chunk, excel_row_chunk)
	ChunksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks produced from source documents",
		},
		[]string{"source_type"},
	)

	// ParseFailures counts documents skipped because they could not be
	// downloaded or parsed.
	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "ingest",
			Name:      "parse_failures_total",
			Help:      "Total number of documents skipped after a download or parse failure",
		},
	)

	// EmbeddingDuration tracks embedding latency.
	// Labels: operation (documents, query)
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "promorag",
			Subsystem: "embedding",
			Name:      "duration_seconds",
			Help:      "Duration of embedding calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RerankDuration tracks hybrid reranking latency.
	RerankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "promorag",
			Subsystem: "retrieval",
			Name:      "rerank_duration_seconds",
			Help:      "Duration of hybrid reranking in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// QueryTypes counts classified questions.
	// Labels: type (contact, sla, process, tool, link, general)
	QueryTypes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total number of questions by classified type",
		},
		[]string{"type"},
	)

	// DegradedAnswers counts answers replaced by a fallback message.
	// Labels: reason (embedding, empty, search, rerank, llm)
	DegradedAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "retrieval",
			Name:      "degraded_answers_total",
			Help:      "Total number of answers replaced by a fallback message",
		},
		[]string{"reason"},
	)
)
