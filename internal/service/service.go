// Package service implements the query pipeline: intent extraction, station
// resolution, listing retrieval, proximity enrichment and summarization.
package service

import (
	"context"
	"log/slog"

	"hdbsearch/internal/model"
)

// ToolInvoker calls a named tool on the external tool service.
// Results are rows ([]any / []map[string]any), JSON text or nil.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// Stage is one step of the pipeline. A stage never fails: upstream problems
// are logged and turned into neutral values so that every run ends with a
// summary.
type Stage interface {
	Name() string
	Run(ctx context.Context, state model.QueryState) model.QueryState
}

// RunRecorder persists a summary of each completed run
type RunRecorder interface {
	RecordRun(ctx context.Context, rec model.RunRecord) error
}

// EventCallback is called for streaming pipeline events
type EventCallback func(event string, data any) error

// Streaming event names
const (
	EventStage    = "stage"
	EventIntent   = "intent"
	EventListings = "listings"
	EventDelta    = "delta"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	eventsKey
)

// WithRunID tags ctx with a run id used in log lines
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID returns the run id carried by ctx
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithEvents attaches an event callback that stages publish progress to
func WithEvents(ctx context.Context, cb EventCallback) context.Context {
	return context.WithValue(ctx, eventsKey, cb)
}

func eventsFrom(ctx context.Context) EventCallback {
	cb, _ := ctx.Value(eventsKey).(EventCallback)
	return cb
}

// emit publishes an event if a callback is attached. Delivery failures are
// logged and otherwise ignored.
func emit(ctx context.Context, logger *slog.Logger, event string, data any) {
	cb := eventsFrom(ctx)
	if cb == nil {
		return
	}
	if err := cb(event, data); err != nil {
		logger.Debug("Event delivery failed", "event", event, "error", err)
	}
}

func loggerFor(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := RunID(ctx); id != "" {
		return base.With("run_id", id)
	}
	return base
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
