package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes recorded in searchRequests.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
	outcomeCacheHit = "cache_hit"
)

var (
	searchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Time spent in the search backend",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	searchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_result_total_hits",
			Help:    "Pre-pagination hit count per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"mode"},
	)

	reindexedProducts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_reindexed_products_total",
		Help: "Total number of products copied into the search index by reindex runs",
	})
)
