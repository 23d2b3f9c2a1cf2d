package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"hdbsearch/internal/config"
)

// Ensure GeminiClient implements StreamCompleter
var _ StreamCompleter = (*GeminiClient)(nil)

// GeminiClient completes prompts with Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
	temp   float32
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		temp:   float32(cfg.Temperature),
		logger: logger.With("component", "llm", "provider", "gemini"),
	}, nil
}

func (g *GeminiClient) generateConfig() *genai.GenerateContentConfig {
	temp := g.temp
	return &genai.GenerateContentConfig{Temperature: &temp}
}

// Complete sends prompt as a single user turn
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := startCompletionSpan(ctx, "llm.GeminiClient.Complete", "gemini", g.model)
	defer span.End()

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.generateConfig())
	if err == nil && result == nil {
		err = errors.New("gemini returned nil result")
	}
	recordCompletion("gemini", time.Since(start), err)
	if err != nil {
		endSpanWithError(span, err)
		return "", err
	}
	return result.Text(), nil
}

// CompleteStream streams the completion, forwarding each text delta
func (g *GeminiClient) CompleteStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	ctx, span := startCompletionSpan(ctx, "llm.GeminiClient.CompleteStream", "gemini", g.model)
	defer span.End()

	start := time.Now()
	var full strings.Builder
	var err error
	for resp, serr := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.generateConfig()) {
		if serr != nil {
			err = serr
			break
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if cerr := onDelta(delta); cerr != nil {
				err = fmt.Errorf("callback error: %w", cerr)
				break
			}
		}
	}
	recordCompletion("gemini", time.Since(start), err)
	if err != nil {
		endSpanWithError(span, err)
		return "", err
	}
	return full.String(), nil
}
