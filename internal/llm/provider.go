package llm

import (
	"context"
	"fmt"
	"log/slog"

	"hdbsearch/internal/config"
)

// New builds the completer selected by cfg.LLM.Provider
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (StreamCompleter, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, &cfg.Gemini, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return c, nil
	case config.ProviderOpenAI, "":
		if !cfg.OpenAI.Enabled {
			return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY or OPENROUTER_API_KEY)", ErrDisabled)
		}
		return NewOpenAIClient(&cfg.OpenAI, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
