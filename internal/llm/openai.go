package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hdbsearch/internal/config"
)

// Ensure OpenAIClient implements StreamCompleter
var _ StreamCompleter = (*OpenAIClient)(nil)

// OpenAIClient handles OpenAI-compatible chat completion APIs
// (OpenAI, OpenRouter, NVIDIA).
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser
	logger      *slog.Logger
}

// NewOpenAIClient creates a client, picking a chunk parser from the base URL
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm", "provider", "openai")

	var parser StreamChunkParser
	switch {
	case IsReasoningProvider(cfg.APIBase):
		parser = &ReasoningStreamChunkParser{}
		logger.Info("🔧 Detected reasoning-capable API provider", "base", cfg.APIBase)
	case IsOpenAIProvider(cfg.APIBase):
		parser = &OpenAIStreamChunkParser{}
		logger.Info("🔧 Detected OpenAI API provider")
	default:
		parser = &OpenAIStreamChunkParser{}
		logger.Info("🔧 Using standard OpenAI format", "base", cfg.APIBase)
	}

	return &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature float64        `json:"temperature"`
	TopP        float64        `json:"top_p,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
	ExtraBody   map[string]any `json:"extra_body,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends prompt as a single user message
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := startCompletionSpan(ctx, "llm.OpenAIClient.Complete", "openai", c.config.ChatModel)
	defer span.End()

	start := time.Now()
	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices in completion response")
	}
	recordCompletion("openai", time.Since(start), err)
	if err != nil {
		endSpanWithError(span, err)
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream sends prompt and forwards content deltas to onDelta.
// Reasoning deltas are logged at debug level and not forwarded.
func (c *OpenAIClient) CompleteStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	ctx, span := startCompletionSpan(ctx, "llm.OpenAIClient.CompleteStream", "openai", c.config.ChatModel)
	defer span.End()

	start := time.Now()
	var full strings.Builder
	thinking := 0
	err := c.ChatCompletionStream(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	}, func(chunk *StreamChunk) error {
		thinking += len(chunk.ThinkingContent)
		if chunk.Content == "" {
			return nil
		}
		full.WriteString(chunk.Content)
		if onDelta != nil {
			return onDelta(chunk.Content)
		}
		return nil
	})
	recordCompletion("openai", time.Since(start), err)
	if err != nil {
		endSpanWithError(span, err)
		return "", err
	}
	c.logger.Debug("Streaming completed", "content_chars", full.Len(), "thinking_chars", thinking)
	return full.String(), nil
}

func (c *OpenAIClient) prepare(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil && c.config.ChatExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(c.config.ChatExtraBody), &extraBody); err == nil {
			req.ExtraBody = extraBody
		} else {
			c.logger.Warn("Failed to parse OPENAI_CHAT_EXTRA_BODY", "error", err)
		}
	}
}

func (c *OpenAIClient) newRequest(ctx context.Context, req ChatCompletionRequest) (*http.Request, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	return httpReq, nil
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, ErrDisabled
	}
	c.prepare(&req)

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.logger.Debug("Chat completion", "model", result.Model, "tokens", result.Usage.TotalTokens)
	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request,
// calling callback for each server-sent chunk
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback func(*StreamChunk) error) error {
	if !c.config.Enabled {
		return ErrDisabled
	}
	c.prepare(&req)
	req.Stream = true

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read stream: %w", err)
		}
		eof := err != nil

		line = bytes.TrimSpace(line)
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				return nil
			}

			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				c.logger.Warn("Failed to parse stream chunk", "error", perr)
			} else if cerr := callback(chunk); cerr != nil {
				return fmt.Errorf("callback error: %w", cerr)
			}
		}

		if eof {
			return nil
		}
	}
}
