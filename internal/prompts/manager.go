package prompts

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"meeting_assistant/internal/config"
)

// Manager hot-reloads prompt templates from the config file without requiring
// process restarts.
type Manager struct {
	path     string
	logger   *slog.Logger
	mu       sync.RWMutex
	cfg      config.PromptConfig
	lastLoad time.Time
}

// NewManager seeds a manager with the prompts already resolved at startup.
func NewManager(path string, initial config.PromptConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, cfg: initial, lastLoad: time.Now(), logger: logger.With("component", "prompts")}
}

// Static returns a manager that never reloads.
func Static(cfg config.PromptConfig) *Manager {
	return &Manager{cfg: cfg, logger: slog.Default()}
}

// Current returns the latest prompts, reloading from disk when the file has changed.
func (m *Manager) Current() config.PromptConfig {
	m.reload()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) reload() {
	if m.path == "" {
		return
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return
	}
	m.mu.RLock()
	stale := info.ModTime().After(m.lastLoad)
	m.mu.RUnlock()
	if !stale {
		return
	}
	cfg, err := config.LoadPromptConfig(m.path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLoad = info.ModTime()
	if err != nil {
		m.logger.Warn("prompt reload failed, keeping previous prompts", "path", m.path, "error", err)
		return
	}
	m.cfg = cfg
	m.logger.Info("prompts reloaded", "path", m.path)
}
