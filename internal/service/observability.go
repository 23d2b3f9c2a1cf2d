package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tracerName = "hdbsearch/service"

var (
	// stageDuration labels: stage
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdbsearch",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// runsTotal labels: status ("completed" | "canceled")
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdbsearch",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome.",
		},
		[]string{"status"},
	)

	listingsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hdbsearch",
			Subsystem: "pipeline",
			Name:      "listings_returned",
			Help:      "Number of enriched listings per completed run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)
)
