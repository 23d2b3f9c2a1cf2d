package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// toolCallDuration labels: tool, status ("success" | "error")
	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdbsearch",
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Duration of tool service calls in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"tool", "status"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdbsearch",
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool service calls.",
		},
		[]string{"tool", "status"},
	)

	toolsetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdbsearch",
			Subsystem: "tool",
			Name:      "toolset_loads_total",
			Help:      "Toolset load attempts by outcome.",
		},
		[]string{"status"},
	)
)

func recordToolCall(tool string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	toolCallDuration.WithLabelValues(tool, status).Observe(d.Seconds())
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}
