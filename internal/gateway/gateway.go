// Package gateway gives the pipeline a lazily loaded, process-wide handle to
// the external tool service.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hdbsearch/gateway"

// Tool names served by the tool service
const (
	ToolStationDistricts = "get-mrt-towns"
	ToolListFlats        = "list-hdb-flats"
	ToolGeospatial       = "geospatial-query"
)

// ErrToolNotFound is returned when the loaded toolset lacks the named tool
var ErrToolNotFound = errors.New("tool not found")

// Tool is a single callable tool.
type Tool interface {
	Name() string
	// Invoke runs the tool. Results are rows ([]any / []map[string]any),
	// JSON text or nil.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Loader fetches the toolset from a backend.
type Loader interface {
	LoadToolset(ctx context.Context) ([]Tool, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context) ([]Tool, error)

// LoadToolset calls f
func (f LoaderFunc) LoadToolset(ctx context.Context) ([]Tool, error) {
	return f(ctx)
}

// Gateway memoizes the toolset of a Loader. Loading happens on first use,
// is serialized across callers and is retried on the next call if it fails.
// Callers queued behind a load give up when their context ends.
type Gateway struct {
	loader  Loader
	timeout time.Duration
	logger  *slog.Logger

	// sem is a one-slot lock guarding tools that waiters can abandon
	sem   chan struct{}
	tools map[string]Tool
}

// Option configures a Gateway
type Option func(*Gateway)

// WithTimeout bounds every tool invocation and toolset load. Zero disables
// the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a gateway over loader. Nothing is loaded until first use.
func New(loader Loader, opts ...Option) *Gateway {
	g := &Gateway{
		loader: loader,
		logger: slog.Default(),
		sem:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gateway")
	return g
}

// Tools returns the loaded toolset keyed by name, loading it if needed.
func (g *Gateway) Tools(ctx context.Context) (map[string]Tool, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("load toolset: %w", ctx.Err())
	}
	defer func() { <-g.sem }()

	if g.tools != nil {
		return g.tools, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway.LoadToolset")
	defer span.End()

	start := time.Now()
	list, err := g.loader.LoadToolset(ctx)
	if err != nil {
		toolsetLoadsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load toolset: %w", err)
	}
	toolsetLoadsTotal.WithLabelValues("success").Inc()

	tools := make(map[string]Tool, len(list))
	for _, t := range list {
		tools[t.Name()] = t
	}
	g.tools = tools

	names := sortedNames(tools)
	span.SetAttributes(attribute.StringSlice("tools", names))
	g.logger.Info("🔧 Loaded toolset", "tools", names, "took", time.Since(start))
	return tools, nil
}

// ToolNames returns the sorted names of the loaded toolset
func (g *Gateway) ToolNames(ctx context.Context) ([]string, error) {
	tools, err := g.Tools(ctx)
	if err != nil {
		return nil, err
	}
	return sortedNames(tools), nil
}

// Invoke calls the named tool with args under the configured timeout.
func (g *Gateway) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	tools, err := g.Tools(ctx)
	if err != nil {
		return nil, err
	}
	tool, ok := tools[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway.Invoke",
		trace.WithAttributes(attribute.String("tool", name)),
	)
	defer span.End()

	start := time.Now()
	result, err := tool.Invoke(ctx, args)
	recordToolCall(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invoke %s: %w", name, err)
	}
	return result, nil
}

func sortedNames(tools map[string]Tool) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
