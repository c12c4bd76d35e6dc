package config

import (
	"errors"
	"os"
	"strings"
)

// PromptConfig captures the prompt templates used by the analysis and report
// stages. Placeholders in {{double_braces}} are substituted at call time.
type PromptConfig struct {
	OutputLanguage string `json:"output_language" yaml:"output_language" toml:"output_language"`
	SummarySystem  string `json:"summary_system" yaml:"summary_system" toml:"summary_system"`
	SummaryPrompt  string `json:"summary_prompt" yaml:"summary_prompt" toml:"summary_prompt"`
	TasksSystem    string `json:"tasks_system" yaml:"tasks_system" toml:"tasks_system"`
	TasksPrompt    string `json:"tasks_prompt" yaml:"tasks_prompt" toml:"tasks_prompt"`
	ReportSystem   string `json:"report_system" yaml:"report_system" toml:"report_system"`
	ReportPrompt   string `json:"report_prompt" yaml:"report_prompt" toml:"report_prompt"`
}

// DefaultPromptConfig returns the baked-in prompt templates.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		OutputLanguage: "the language of the transcript",
		SummarySystem: `You are a meeting assistant. Analyse the meeting transcript you are given.
Answer strictly in JSON and write nothing else.`,
		SummaryPrompt: `Analyse the meeting transcript below and answer in JSON:

{
    "full_summary": "comprehensive summary of the meeting (2-3 paragraphs)",
    "key_points": ["key point 1", "key point 2"],
    "decisions": ["decision 1", "decision 2"]
}

Write the values in {{language}}.

TRANSCRIPT:
{{transcript}}`,
		TasksSystem: `You are a meeting assistant. Extract the tasks from the meeting transcript you are given.
Answer strictly in JSON and write nothing else.`,
		TasksPrompt: `Extract the action items (tasks) from the meeting transcript below.
Participants: {{participants}}

Answer with a JSON array, one object per task:
[
    {
        "title": "task title",
        "description": "task description",
        "assignee": "name of the responsible participant or null",
        "priority": "low|medium|high"
    }
]

Write titles and descriptions in {{language}}.

TRANSCRIPT:
{{transcript}}`,
		ReportSystem: `You are a project management assistant. Answer strictly in JSON.`,
		ReportPrompt: `Create a progress report from the meeting information below.
Answer in JSON:

{
    "title": "report title",
    "summary": "short summary",
    "task_overview": {
        "total": total_task_count,
        "completed": completed_count,
        "in_progress": in_progress_count,
        "pending": pending_count
    },
    "highlights": ["highlight 1"],
    "next_steps": ["next step 1"],
    "risks": ["risk or blocker 1"]
}

Write the values in {{language}}.

MEETING: {{title}}

SUMMARY:
{{summary}}

KEY POINTS:
{{key_points}}

TASKS:
{{tasks}}`,
	}
}

// LoadPromptConfig reads the prompts section of a config file and merges it
// with defaults.
func LoadPromptConfig(path string) (PromptConfig, error) {
	cfg := DefaultPromptConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	var parsed struct {
		Prompts PromptConfig `json:"prompts" yaml:"prompts" toml:"prompts"`
	}
	if err := decodeByExt(path, data, &parsed); err != nil {
		return cfg, err
	}
	return MergePromptConfig(cfg, parsed.Prompts), nil
}

// MergePromptConfig overlays non-empty fields onto the base config.
func MergePromptConfig(base PromptConfig, override PromptConfig) PromptConfig {
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&base.OutputLanguage, override.OutputLanguage)
	pick(&base.SummarySystem, override.SummarySystem)
	pick(&base.SummaryPrompt, override.SummaryPrompt)
	pick(&base.TasksSystem, override.TasksSystem)
	pick(&base.TasksPrompt, override.TasksPrompt)
	pick(&base.ReportSystem, override.ReportSystem)
	pick(&base.ReportPrompt, override.ReportPrompt)
	return base
}

// Render substitutes {{key}} placeholders in tmpl.
func Render(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
