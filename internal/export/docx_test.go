package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meeting_assistant/internal/store"
)

func TestReportDocumentLayout(t *testing.T) {
	content, _ := json.Marshal(map[string]any{
		"title":         "Sprint 4",
		"summary":       "On track.",
		"task_overview": map[string]any{"total": 3, "completed": 1, "in_progress": 1, "pending": 1},
		"highlights":    []string{"demo shipped"},
		"next_steps":    []string{},
		"risks":         []string{"vendor delay"},
		"budget":        "unchanged",
	})
	rep := &store.ProgressReport{ID: 5, ReportType: store.ReportMeeting, Content: content, GeneratedAt: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)}

	doc, err := ReportDocument(rep, "fallback title")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Sprint 4" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	var headings []string
	for _, b := range doc.Blocks {
		if b.Kind == Heading {
			headings = append(headings, b.Text)
		}
	}
	want := []string{"Summary", "Tasks", "Highlights", "Risks", "budget"}
	if len(headings) != len(want) {
		t.Fatalf("unexpected headings %v", headings)
	}
	for i := range want {
		if headings[i] != want[i] {
			t.Fatalf("unexpected headings %v", headings)
		}
	}
}

func TestReportDocumentUnsupported(t *testing.T) {
	rep := &store.ProgressReport{ID: 9, ReportType: store.ReportMeeting, Content: json.RawMessage(`{"message":"general reports are not supported yet","supported":false}`)}
	doc, err := ReportDocument(rep, "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Report 9" || len(doc.Blocks) != 2 || doc.Blocks[1].Text != "general reports are not supported yet" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestSaveWritesDocx(t *testing.T) {
	label := "Ada"
	duration := 125.0
	m := &store.Meeting{ID: 1, Title: "Retro", DurationSeconds: &duration}
	doc := MeetingDocument(m,
		&store.Summary{FullSummary: "Went well.", KeyPoints: []string{"faster CI"}},
		[]store.Task{{Title: "Fix flaky test", Status: store.TaskPending, Priority: store.PriorityHigh, AssigneeName: &label}},
		[]store.TranscriptSegment{{SpeakerLabel: "SPEAKER_00", ParticipantName: &label, StartTime: 61, Text: "Hello"}},
	)
	var transcriptLine string
	for _, b := range doc.Blocks {
		if b.Kind == Text && bytes.HasPrefix([]byte(b.Text), []byte("00:01:01")) {
			transcriptLine = b.Text
		}
	}
	if transcriptLine != "00:01:01 Ada: Hello" {
		t.Fatalf("unexpected transcript line %q", transcriptLine)
	}

	path := filepath.Join(t.TempDir(), "out", "retro.docx")
	if err := Save(doc, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("expected a zip container")
	}
}
