// Package llm wraps the language-model completion providers behind a single
// prompt-in, text-out interface.
package llm

import (
	"context"
	"errors"
)

// ErrDisabled is returned when a provider has no credentials configured
var ErrDisabled = errors.New("completion provider is not enabled")

// Completer sends a single user prompt and returns the raw completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StreamCompleter is implemented by providers that can stream text deltas.
// The full text is returned once the stream ends; onDelta errors abort it.
type StreamCompleter interface {
	Completer
	CompleteStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error)
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	Role string
	Done bool
}

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// Disabled is a completer for runs without a configured provider. Every call
// fails with ErrDisabled.
type Disabled struct{}

// Complete returns ErrDisabled
func (Disabled) Complete(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// CompleteStream returns ErrDisabled
func (Disabled) CompleteStream(context.Context, string, func(string) error) (string, error) {
	return "", ErrDisabled
}
