package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/store"
)

func setup(t *testing.T) (*Watcher, *store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "meetings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	inbox := t.TempDir()
	cfg := config.Config{InboxDir: inbox, EnableWatcher: true, QueueSize: 4, WorkerCount: 0, JobTimeout: time.Second}
	runner := jobs.NewRunner(cfg, st, jobs.Registry{}, nil, nil)
	return New(cfg, st, runner, nil), st, inbox
}

func TestIngestCreatesMeetingOnce(t *testing.T) {
	w, st, inbox := setup(t)
	ctx := context.Background()
	path := filepath.Join(inbox, "TeamSync_2025_03_04_10_00_00.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := w.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Title != "Team Sync" || m.Status != store.MeetingProcessing {
		t.Fatalf("unexpected meeting %+v", m)
	}
	if m.Date == nil || m.Date.Year() != 2025 {
		t.Fatalf("date not derived from filename: %v", m.Date)
	}
	again, err := w.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != m.ID {
		t.Fatalf("expected the same meeting, got %d vs %d", again.ID, m.ID)
	}
	all, _ := st.ListMeetings(ctx, 10)
	if len(all) != 1 {
		t.Fatalf("expected one meeting, got %d", len(all))
	}
	queued, _ := st.ListJobs(ctx, 10, jobs.StatusQueued)
	if len(queued) != 1 || queued[0].Stage != string(jobs.StageProcessMeeting) {
		t.Fatalf("unexpected jobs %+v", queued)
	}
}

func TestBackfillSkipsUnsupportedFiles(t *testing.T) {
	w, _, inbox := setup(t)
	for name, body := range map[string]string{"a.wav": "x", "notes.txt": "x", "empty.mp3": ""} {
		if err := os.WriteFile(filepath.Join(inbox, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err := w.Backfill(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 ingested file, got %d", n)
	}
}

func TestWatcherPicksUpNewFiles(t *testing.T) {
	w, st, inbox := setup(t)
	w.settle = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inbox, "retro.wav"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ms, _ := st.ListMeetings(ctx, 10)
		if len(ms) == 1 && ms[0].Title == "retro" {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("watcher did not ingest the new file")
}
