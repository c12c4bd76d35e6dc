// Package analysis turns a transcript into a structured summary and action
// items using a language model.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/llm"
	"meeting_assistant/internal/store"
)

// PromptSource yields the current prompt templates.
type PromptSource interface {
	Current() config.PromptConfig
}

// Summary is the structured meeting summary. Structured is false when the
// model output could not be parsed and FullSummary holds the raw text.
type Summary struct {
	FullSummary string   `json:"full_summary"`
	KeyPoints   []string `json:"key_points"`
	Decisions   []string `json:"decisions"`
	Structured  bool     `json:"-"`
}

// Task is one extracted action item.
type Task struct {
	Title       string
	Description string
	Assignee    string
	Priority    store.Priority
}

// Analyzer runs summarization and task extraction against a provider.
type Analyzer struct {
	provider llm.Provider
	prompts  PromptSource
	logger   *slog.Logger
}

func New(provider llm.Provider, prompts PromptSource, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{provider: provider, prompts: prompts, logger: logger.With("component", "analysis")}
}

// Summarize never fails on malformed model output; only transport errors are
// returned.
func (a *Analyzer) Summarize(ctx context.Context, transcript string) (Summary, error) {
	p := a.prompts.Current()
	prompt := config.Render(p.SummaryPrompt, map[string]string{
		"transcript": transcript,
		"language":   p.OutputLanguage,
	})
	raw, err := a.provider.Generate(ctx, prompt, p.SummarySystem)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	decoded := llm.Decode[Summary](raw)
	if !decoded.Structured {
		a.logger.Warn("summary output was not JSON, storing raw text", "provider", a.provider.Name(), "chars", len(raw))
		return Summary{FullSummary: raw, KeyPoints: []string{}, Decisions: []string{}}, nil
	}
	out := decoded.Value
	out.Structured = true
	out.KeyPoints = cleanList(out.KeyPoints)
	out.Decisions = cleanList(out.Decisions)
	return out, nil
}

type rawTask struct {
	Title        looseText `json:"title"`
	Description  looseText `json:"description"`
	Assignee     looseText `json:"assignee"`
	AssigneeName looseText `json:"assignee_name"`
	Priority     looseText `json:"priority"`
}

// UnmarshalJSON leaves a non-object item blank so it is skipped without
// failing the rest of the list.
func (r *rawTask) UnmarshalJSON(data []byte) error {
	type plain rawTask
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*r = rawTask{}
		return nil
	}
	*r = rawTask(p)
	return nil
}

// looseText accepts any JSON scalar. Numbers and booleans keep their literal
// form, null and composite values decode as empty.
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*t = looseText(x)
	case float64, bool:
		*t = looseText(fmt.Sprint(x))
	default:
		*t = ""
	}
	return nil
}

// ExtractTasks returns the action items found in transcript. Malformed model
// output yields an empty list.
func (a *Analyzer) ExtractTasks(ctx context.Context, transcript string, participants []string) ([]Task, error) {
	p := a.prompts.Current()
	names := "unspecified"
	if len(participants) > 0 {
		names = strings.Join(participants, ", ")
	}
	prompt := config.Render(p.TasksPrompt, map[string]string{
		"transcript":   transcript,
		"participants": names,
		"language":     p.OutputLanguage,
	})
	raw, err := a.provider.Generate(ctx, prompt, p.TasksSystem)
	if err != nil {
		return nil, fmt.Errorf("extract tasks: %w", err)
	}

	items, ok := decodeTasks(raw)
	if !ok {
		a.logger.Warn("task output was not JSON, no tasks extracted", "provider", a.provider.Name(), "chars", len(raw))
		return []Task{}, nil
	}
	out := make([]Task, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(string(it.Title))
		if title == "" {
			continue
		}
		out = append(out, Task{
			Title:       title,
			Description: strings.TrimSpace(string(it.Description)),
			Assignee:    assigneeOf(it),
			Priority:    store.ParsePriority(string(it.Priority)),
		})
	}
	return out, nil
}

func decodeTasks(raw string) ([]rawTask, bool) {
	if list := llm.Decode[[]rawTask](raw); list.Structured {
		return list.Value, true
	}
	wrapped := llm.Decode[struct {
		Tasks []rawTask `json:"tasks"`
	}](raw)
	if wrapped.Structured && wrapped.Value.Tasks != nil {
		return wrapped.Value.Tasks, true
	}
	return nil, false
}

func assigneeOf(t rawTask) string {
	for _, v := range []looseText{t.Assignee, t.AssigneeName} {
		name := strings.TrimSpace(string(v))
		if name != "" && !strings.EqualFold(name, "null") {
			return name
		}
	}
	return ""
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
