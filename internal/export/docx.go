// Package export writes reports and meeting summaries as .docx documents.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"meeting_assistant/internal/store"
)

const (
	fontName = "Calibri"
	fontSize = 11
)

// BlockKind selects how a line is styled.
type BlockKind int

const (
	Heading BlockKind = iota
	Text
	Bullet
)

type Block struct {
	Kind BlockKind
	Text string
}

// Document is the styled outline rendered into a .docx file.
type Document struct {
	Title  string
	Blocks []Block
}

func (d *Document) heading(s string) { d.Blocks = append(d.Blocks, Block{Kind: Heading, Text: s}) }
func (d *Document) text(s string)    { d.Blocks = append(d.Blocks, Block{Kind: Text, Text: s}) }
func (d *Document) bullets(items []string) {
	for _, it := range items {
		d.Blocks = append(d.Blocks, Block{Kind: Bullet, Text: it})
	}
}

var reportSections = []struct {
	key   string
	title string
}{
	{"highlights", "Highlights"},
	{"next_steps", "Next steps"},
	{"risks", "Risks"},
}

// ReportDocument lays out a stored report. Fields the model added beyond the
// known ones are appended as extra sections.
func ReportDocument(rep *store.ProgressReport, meetingTitle string) (Document, error) {
	var content map[string]any
	if err := json.Unmarshal(rep.Content, &content); err != nil {
		return Document{}, fmt.Errorf("decode report %d: %w", rep.ID, err)
	}
	doc := Document{Title: stringOr(content["title"], meetingTitle)}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("Report %d", rep.ID)
	}
	doc.text(fmt.Sprintf("%s report generated %s", rep.ReportType, rep.GeneratedAt.Format("2006-01-02 15:04")))

	if msg, ok := content["message"].(string); ok {
		doc.text(msg)
	}
	if s := stringOr(content["summary"], ""); s != "" {
		doc.heading("Summary")
		doc.text(s)
	}
	if overview, ok := content["task_overview"].(map[string]any); ok && len(overview) > 0 {
		doc.heading("Tasks")
		for _, k := range []string{"total", "completed", "in_progress", "pending"} {
			if v, ok := overview[k]; ok {
				doc.Blocks = append(doc.Blocks, Block{Kind: Bullet, Text: fmt.Sprintf("%s: %v", strings.ReplaceAll(k, "_", " "), v)})
			}
		}
	}
	known := map[string]bool{"title": true, "summary": true, "task_overview": true, "message": true, "supported": true}
	for _, sec := range reportSections {
		known[sec.key] = true
		items := stringList(content[sec.key])
		if len(items) == 0 {
			continue
		}
		doc.heading(sec.title)
		doc.bullets(items)
	}

	extra := make([]string, 0)
	for k := range content {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		doc.heading(strings.ReplaceAll(k, "_", " "))
		if items := stringList(content[k]); len(items) > 0 {
			doc.bullets(items)
			continue
		}
		doc.text(fmt.Sprint(content[k]))
	}
	return doc, nil
}

// MeetingDocument lays out a meeting with its summary, tasks and transcript.
func MeetingDocument(m *store.Meeting, summary *store.Summary, tasks []store.Task, segments []store.TranscriptSegment) Document {
	doc := Document{Title: m.Title}
	if m.Date != nil {
		doc.text("Date: " + m.Date.Format("2006-01-02 15:04"))
	}
	if m.DurationSeconds != nil {
		doc.text(fmt.Sprintf("Duration: %.0f min", *m.DurationSeconds/60))
	}
	if summary != nil {
		doc.heading("Summary")
		doc.text(summary.FullSummary)
		if len(summary.KeyPoints) > 0 {
			doc.heading("Key points")
			doc.bullets(summary.KeyPoints)
		}
		if len(summary.Decisions) > 0 {
			doc.heading("Decisions")
			doc.bullets(summary.Decisions)
		}
	}
	if len(tasks) > 0 {
		doc.heading("Tasks")
		for _, t := range tasks {
			assignee := "unassigned"
			if t.AssigneeName != nil {
				assignee = *t.AssigneeName
			}
			doc.Blocks = append(doc.Blocks, Block{Kind: Bullet, Text: fmt.Sprintf("[%s] %s (%s, %s)", t.Status, t.Title, assignee, t.Priority)})
		}
	}
	if len(segments) > 0 {
		doc.heading("Transcript")
		for _, s := range segments {
			doc.text(fmt.Sprintf("%s %s: %s", clock(s.StartTime), s.DisplayName(), s.Text))
		}
	}
	return doc
}

// Save renders doc to outputPath, creating parent directories.
func Save(doc Document, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := godocx.NewDocument()
	if err != nil {
		return err
	}
	addRun(out.AddParagraph(""), doc.Title, true, 16)
	for _, b := range doc.Blocks {
		switch b.Kind {
		case Heading:
			addRun(out.AddParagraph(""), b.Text, true, 13)
		case Bullet:
			addRun(out.AddParagraph(""), "• "+b.Text, false, fontSize)
		default:
			addRun(out.AddParagraph(""), b.Text, false, fontSize)
		}
	}
	return out.SaveTo(outputPath)
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			out = append(out, x)
		default:
			b, _ := json.Marshal(x)
			out = append(out, string(b))
		}
	}
	return out
}
