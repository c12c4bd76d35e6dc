package llm

import (
	"context"
	"strings"
	"sync"

	"meeting_assistant/internal/config"
)

// Lazy defers building the configured provider until the first Generate, so
// commands that never reach a model do not need its credentials.
type Lazy struct {
	cfg config.LLMConfig

	mu       sync.Mutex
	provider Provider
}

func NewLazy(cfg config.LLMConfig) *Lazy {
	return &Lazy{cfg: cfg}
}

func (l *Lazy) Name() string {
	return strings.ToLower(strings.TrimSpace(l.cfg.Provider))
}

func (l *Lazy) Generate(ctx context.Context, prompt, system string) (string, error) {
	p, err := l.resolve(ctx)
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, prompt, system)
}

// A failed build is not cached; the next call tries again.
func (l *Lazy) resolve(ctx context.Context) (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.provider != nil {
		return l.provider, nil
	}
	p, err := New(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	l.provider = p
	return p, nil
}
