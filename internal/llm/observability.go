package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hdbsearch/llm"

var (
	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdbsearch",
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "Duration of completion calls in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "status"},
	)

	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdbsearch",
			Subsystem: "llm",
			Name:      "completions_total",
			Help:      "Total number of completion calls.",
		},
		[]string{"provider", "status"},
	)
)

func recordCompletion(provider string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	completionDuration.WithLabelValues(provider, status).Observe(d.Seconds())
	completionsTotal.WithLabelValues(provider, status).Inc()
}

func startCompletionSpan(ctx context.Context, name, provider, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	))
}

func endSpanWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
