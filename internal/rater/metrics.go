package rater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// verdicts counts rater outcomes by label
	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_rater_verdicts_total",
		Help: "Total rater verdicts by label",
	}, []string{"verdict"})

	// stepsPerFact tracks how many searches were made before the verdict
	stepsPerFact = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verity_rater_searches_per_fact",
		Help:    "Number of searches performed per atomic fact",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 10},
	})
)
