package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchDuration tracks nearest-neighbour query latency.
	// Labels: provider (chromem, qdrant)
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "promorag",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of vector similarity searches in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"provider"},
	)

	// VectorsAdded counts vectors written to the index.
	// Labels: provider (chromem, qdrant)
	VectorsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "vectorstore",
			Name:      "vectors_added_total",
			Help:      "Total number of vectors added to the index",
		},
		[]string{"provider"},
	)

	// DimensionMismatches counts searches rejected for a wrong query size.
	DimensionMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promorag",
			Subsystem: "vectorstore",
			Name:      "dimension_mismatches_total",
			Help:      "Total number of searches with a query vector of the wrong dimension",
		},
		[]string{"provider"},
	)
)

func observeSearch(provider string, start time.Time) {
	SearchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
