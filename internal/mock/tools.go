package mock

import (
	"context"

	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

var _ service.ToolInvoker = (*ToolInvoker)(nil)

// ToolInvoker is a mock implementation of service.ToolInvoker.
type ToolInvoker struct {
	InvokeFn func(ctx context.Context, name string, args map[string]any) (any, error)
}

func (t *ToolInvoker) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	return t.InvokeFn(ctx, name, args)
}

var _ gateway.Loader = (*ToolLoader)(nil)

// ToolLoader is a mock implementation of gateway.Loader.
type ToolLoader struct {
	LoadToolsetFn func(ctx context.Context) ([]gateway.Tool, error)
}

func (l *ToolLoader) LoadToolset(ctx context.Context) ([]gateway.Tool, error) {
	return l.LoadToolsetFn(ctx)
}

var _ gateway.Tool = (*Tool)(nil)

// Tool is a mock implementation of gateway.Tool.
type Tool struct {
	NameValue string
	InvokeFn  func(ctx context.Context, args map[string]any) (any, error)
}

func (t *Tool) Name() string { return t.NameValue }

func (t *Tool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return t.InvokeFn(ctx, args)
}

var _ service.RunRecorder = (*RunRecorder)(nil)

// RunRecorder is a mock implementation of service.RunRecorder.
type RunRecorder struct {
	RecordRunFn func(ctx context.Context, rec model.RunRecord) error
}

func (r *RunRecorder) RecordRun(ctx context.Context, rec model.RunRecord) error {
	return r.RecordRunFn(ctx, rec)
}
