// Package llm exposes a single text-generation interface over the supported
// model backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Provider generates a completion for prompt under an optional system
// instruction. Providers never retry; callers decide what a failure means.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Error is a transport-level failure from a provider.
type Error struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": request failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call might succeed: timeouts,
// transport failures, 408, 429 and 5xx.
func (e *Error) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == 0 && e.Err != nil:
		return true
	}
	return false
}

// ErrEmptyResponse is wrapped when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response")

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
