// Package report synthesises progress reports from a meeting summary and its
// tasks.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/llm"
)

// PromptSource yields the current prompt templates.
type PromptSource interface {
	Current() config.PromptConfig
}

// Content is the report document as produced by the model.
type Content map[string]any

// SummaryView is the part of a summary a report is built from.
type SummaryView struct {
	FullSummary string
	KeyPoints   []string
}

// TaskLine is one task as rendered into the report prompt.
type TaskLine struct {
	Title        string
	Status       string
	AssigneeName string
	Priority     string
}

// Input bundles what a meeting report is generated from.
type Input struct {
	MeetingTitle string
	Summary      SummaryView
	Tasks        []TaskLine
}

// Synthesizer generates report content with a language model.
type Synthesizer struct {
	provider llm.Provider
	prompts  PromptSource
	logger   *slog.Logger
}

func New(provider llm.Provider, prompts PromptSource, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{provider: provider, prompts: prompts, logger: logger.With("component", "report")}
}

// Generate returns structured content, or a fallback document carrying the
// raw model text when it is not parseable. Transport errors propagate.
func (s *Synthesizer) Generate(ctx context.Context, in Input) (Content, error) {
	p := s.prompts.Current()
	prompt := config.Render(p.ReportPrompt, map[string]string{
		"title":      in.MeetingTitle,
		"summary":    in.Summary.FullSummary,
		"key_points": bulletList(in.Summary.KeyPoints),
		"tasks":      TaskLines(in.Tasks),
		"language":   p.OutputLanguage,
	})
	raw, err := s.provider.Generate(ctx, prompt, p.ReportSystem)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	decoded := llm.Decode[map[string]any](raw)
	if !decoded.Structured || decoded.Value == nil {
		s.logger.Warn("report output was not JSON, storing raw text", "provider", s.provider.Name(), "chars", len(raw))
		return Fallback(in.MeetingTitle, raw), nil
	}
	return Content(decoded.Value), nil
}

// Fallback is the document stored when model output cannot be parsed.
func Fallback(title, raw string) Content {
	return Content{"title": title, "summary": raw, "task_overview": map[string]any{}}
}

// Unsupported is the document stored for report requests without a meeting.
func Unsupported() Content {
	return Content{"message": "general reports are not supported yet", "supported": false}
}

// TaskLines renders tasks as "- [status] title (assignee: name, priority: p)".
func TaskLines(tasks []TaskLine) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = "pending"
		}
		assignee := t.AssigneeName
		if strings.TrimSpace(assignee) == "" {
			assignee = "unassigned"
		}
		priority := t.Priority
		if priority == "" {
			priority = "medium"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s (assignee: %s, priority: %s)", status, t.Title, assignee, priority))
	}
	return strings.Join(lines, "\n")
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}
