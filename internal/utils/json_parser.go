package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyInput is returned when there is nothing to parse
	ErrEmptyInput = errors.New("empty input")
	// ErrUnexpectedShape is returned when a tool result is not a row sequence
	ErrUnexpectedShape = errors.New("unexpected result shape")
)

var (
	jsonFenceRe     = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	bareFenceRe     = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// StripCodeFence removes a leading ```json or ``` fence and a trailing ```
// fence from model output, in that order, then trims whitespace.
func StripCodeFence(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseAIJSON extracts and parses JSON from model output that may be:
// - pure JSON
// - wrapped in markdown code blocks (```json ... ```)
// - surrounded by prose
// - slightly malformed (trailing commas, unquoted keys, single quotes)
func ParseAIJSON(input string, target any) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if stripped := StripCodeFence(input); stripped != input {
		if err := json.Unmarshal([]byte(stripped), target); err == nil {
			return nil
		}
	}

	if extracted := extractFromMarkdown(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
	}

	if extracted := extractJSONFromText(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(cleanAndFixJSON(extracted)), target); err == nil {
			return nil
		}
	}

	if err := json.Unmarshal([]byte(cleanAndFixJSON(input)), target); err != nil {
		return fmt.Errorf("parse JSON from %q: %w", truncateString(input, 100), err)
	}
	return nil
}

// DecodeRows normalizes a tool result into a row sequence.
//
// Accepted shapes are []map[string]any, []any of objects, and JSON text
// holding an array. nil yields an empty slice and no error. Anything else
// yields an empty slice and an error wrapping ErrUnexpectedShape; callers
// that only want best effort can ignore the error.
func DecodeRows(result any) ([]map[string]any, error) {
	switch v := result.(type) {
	case nil:
		return []map[string]any{}, nil
	case []map[string]any:
		return v, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return []map[string]any{}, fmt.Errorf("row %d is %T: %w", i, item, ErrUnexpectedShape)
			}
			rows = append(rows, row)
		}
		return rows, nil
	case string:
		return decodeRowText(v)
	case []byte:
		return decodeRowText(string(v))
	case json.RawMessage:
		return decodeRowText(string(v))
	default:
		return []map[string]any{}, fmt.Errorf("got %T: %w", result, ErrUnexpectedShape)
	}
}

func decodeRowText(text string) ([]map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return []map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return []map[string]any{}, fmt.Errorf("decode rows from %q: %w", truncateString(text, 100), err)
	}
	if decoded == nil {
		return []map[string]any{}, nil
	}
	if _, ok := decoded.([]any); !ok {
		return []map[string]any{}, fmt.Errorf("got JSON %T: %w", decoded, ErrUnexpectedShape)
	}
	return DecodeRows(decoded)
}

// extractFromMarkdown extracts JSON from markdown code blocks anywhere in the text
func extractFromMarkdown(input string) string {
	if matches := jsonFenceRe.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := bareFenceRe.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// extractJSONFromText finds the first JSON object or array in surrounding text
func extractJSONFromText(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '{', '}'); extracted != "" {
			return extracted
		}
	}

	if start := strings.Index(input, "["); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '[', ']'); extracted != "" {
			return extracted
		}
	}

	return ""
}

// extractBalancedBraces returns the first balanced open/close span, ignoring
// delimiters inside string literals
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON repairs the common ways models break JSON
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\ufeff")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	return controlCharRe.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single-quoted string delimiters to double quotes.
// Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDoubleQuote := false
	inSingleQuote := false
	escape := false
	prev := rune(0)

	for _, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote
		case ch == '\'' && !inDoubleQuote:
			opening := !inSingleQuote && strings.ContainsRune(":,[{ ", prev)
			if opening || inSingleQuote {
				inSingleQuote = !inSingleQuote
				ch = '"'
			}
		}
		result.WriteRune(ch)
		prev = ch
	}

	return result.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
