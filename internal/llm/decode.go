package llm

import (
	"encoding/json"
	"strings"
)

// Decoded is the outcome of best-effort JSON decoding of model output.
// Structured is false when nothing parseable was found; Raw always holds the
// original text so callers can build their fallback from it.
type Decoded[T any] struct {
	Value      T
	Raw        string
	Structured bool
}

// Decode parses raw as T, tolerating a surrounding fenced code block and
// prose around the first balanced JSON object or array.
func Decode[T any](raw string) Decoded[T] {
	out := Decoded[T]{Raw: raw}
	text := StripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return out
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		out.Value, out.Structured = v, true
		return out
	}
	candidate := extractJSON(text)
	if candidate == "" || candidate == text {
		return out
	}
	var retry T
	if err := json.Unmarshal([]byte(candidate), &retry); err == nil {
		out.Value, out.Structured = retry, true
	}
	return out
}

// StripCodeFence removes a leading ```lang line and the trailing fence.
func StripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	nl := strings.Index(text, "\n")
	if nl == -1 {
		return strings.TrimSpace(strings.Trim(text, "`"))
	}
	body := text[nl+1:]
	if end := strings.LastIndex(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// extractJSON returns the first balanced {...} or [...] in input.
func extractJSON(input string) string {
	start := strings.IndexAny(input, "{[")
	if start == -1 {
		return ""
	}
	open := input[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
