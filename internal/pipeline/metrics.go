package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evaluations counts response evaluations by result
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_evaluations_total",
		Help: "Total response evaluations by result",
	}, []string{"result"})

	// evaluationDuration tracks time to evaluate one response
	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verity_evaluation_duration_seconds",
		Help:    "Response evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
	})

	// claimsProcessed counts claims by final annotation, or "dropped"
	claimsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_claims_total",
		Help: "Total claims by annotation",
	}, []string{"annotation"})

	// claimRetries counts whole-claim retries
	claimRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_claim_retries_total",
		Help: "Total whole-claim retries after a failed attempt",
	})
)
