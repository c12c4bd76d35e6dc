package prompts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"meeting_assistant/internal/config"
)

func TestManagerReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("prompts:\n  output_language: German\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, config.DefaultPromptConfig(), nil)
	if got := m.Current().OutputLanguage; got != config.DefaultPromptConfig().OutputLanguage {
		t.Fatalf("older file should not be loaded, got %q", got)
	}

	if err := os.WriteFile(path, []byte("prompts:\n  output_language: French\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if got := m.Current().OutputLanguage; got != "French" {
		t.Fatalf("expected reloaded language, got %q", got)
	}
}

func TestManagerKeepsPromptsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path, config.DefaultPromptConfig(), nil)
	if err := os.WriteFile(path, []byte("prompts: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if got := m.Current().SummaryPrompt; got != config.DefaultPromptConfig().SummaryPrompt {
		t.Fatal("expected defaults to survive a broken file")
	}
}

func TestStaticNeverReloads(t *testing.T) {
	cfg := config.DefaultPromptConfig()
	cfg.OutputLanguage = "Dutch"
	if got := Static(cfg).Current().OutputLanguage; got != "Dutch" {
		t.Fatalf("unexpected language %q", got)
	}
}
