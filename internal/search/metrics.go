package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchRequests counts dispatched queries by provider and outcome
	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_search_requests_total",
		Help: "Total search queries by provider and outcome",
	}, []string{"provider", "outcome"})

	// searchRetries counts transport failures that triggered a backoff
	searchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_search_transport_failures_total",
		Help: "Total search transport failures by provider",
	}, []string{"provider"})

	// searchDuration tracks end-to-end query latency including backoff sleeps
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verity_search_duration_seconds",
		Help:    "Search query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"provider"})

	// searchCacheHits counts queries answered from the evidence cache
	searchCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_search_cache_hits_total",
		Help: "Total search queries served from cache",
	}, []string{"provider"})
)
