package llm

import (
	"encoding/json"
	"strings"
)

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts an OpenAI chunk to a StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) > 0 {
		delta := rawChunk.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		chunk.Done = rawChunk.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// ReasoningStreamChunkParser parses chunks from providers that stream model
// reasoning alongside content (NVIDIA/DeepSeek reasoning_content, OpenRouter
// reasoning).
type ReasoningStreamChunkParser struct{}

// ParseChunk converts a reasoning-capable chunk to a StreamChunk
func (p *ReasoningStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
				Reasoning        *string `json:"reasoning,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) > 0 {
		delta := rawChunk.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		switch {
		case delta.ReasoningContent != nil:
			chunk.ThinkingContent = *delta.ReasoningContent
		case delta.Reasoning != nil:
			chunk.ThinkingContent = *delta.Reasoning
		}
		chunk.Done = rawChunk.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

// IsReasoningProvider reports whether the base URL belongs to a provider
// that streams reasoning deltas
func IsReasoningProvider(baseURL string) bool {
	return strings.Contains(baseURL, "integrate.api.nvidia.com") ||
		strings.Contains(baseURL, "openrouter.ai")
}
