package mock

import (
	"context"

	"hdbsearch/internal/llm"
)

var _ llm.Completer = (*Completer)(nil)

// Completer is a mock implementation of llm.Completer.
type Completer struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteFn(ctx, prompt)
}

var _ llm.StreamCompleter = (*StreamCompleter)(nil)

// StreamCompleter is a mock implementation of llm.StreamCompleter.
type StreamCompleter struct {
	CompleteFn       func(ctx context.Context, prompt string) (string, error)
	CompleteStreamFn func(ctx context.Context, prompt string, onDelta func(string) error) (string, error)
}

func (c *StreamCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteFn(ctx, prompt)
}

func (c *StreamCompleter) CompleteStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	return c.CompleteStreamFn(ctx, prompt, onDelta)
}
