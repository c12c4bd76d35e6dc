package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/store"
)

func newTestRunner(t *testing.T, workers int, reg Registry) (*Runner, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := config.Config{QueueSize: 4, WorkerCount: workers, JobTimeout: 5 * time.Second}
	return NewRunner(cfg, st, reg, nil, nil), st
}

func waitForStatus(t *testing.T, st *store.Store, id int64, want string) *store.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err := st.GetJob(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d never reached %s", id, want)
	return nil
}

func TestIdempotentEnqueue(t *testing.T) {
	runner, _ := newTestRunner(t, 0, Registry{})
	ctx := context.Background()
	j1, err := runner.Enqueue(ctx, 1, StageProcessMeeting, map[string]any{"audio": "a.wav"})
	if err != nil {
		t.Fatalf("enqueue1: %v", err)
	}
	j2, err := runner.Enqueue(ctx, 1, StageProcessMeeting, map[string]any{"audio": "a.wav"})
	if err != nil {
		t.Fatalf("enqueue2: %v", err)
	}
	if j1.ID != j2.ID {
		t.Fatalf("expected idempotent job, got %d vs %d", j1.ID, j2.ID)
	}
	j3, err := runner.Enqueue(ctx, 2, StageProcessMeeting, map[string]any{"audio": "a.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if j3.ID == j1.ID {
		t.Fatal("different meetings must not share a job")
	}
	if j1.Status != StatusQueued {
		t.Fatalf("expected queued job before start, got %s", j1.Status)
	}
}

func TestStartRecoversQueuedJobs(t *testing.T) {
	var calls int32
	var gotMeeting int64
	reg := Registry{StageRegenerateSummary: func(ctx context.Context, exec ExecutionContext, meetingID int64, params map[string]any) error {
		atomic.AddInt32(&calls, 1)
		atomic.StoreInt64(&gotMeeting, meetingID)
		exec.Logf("regenerated summary for %d", meetingID)
		return nil
	}}
	runner, st := newTestRunner(t, 1, reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j, err := runner.Enqueue(ctx, 42, StageRegenerateSummary, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := runner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, st, j.ID, StatusSucceeded)
	if atomic.LoadInt32(&calls) != 1 || atomic.LoadInt64(&gotMeeting) != 42 {
		t.Fatalf("stage not executed once for meeting 42: calls=%d", calls)
	}
	logs, err := runner.Logs(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(logs, "\n"), "regenerated summary for 42") {
		t.Fatalf("stage log missing: %v", logs)
	}
	persisted, err := st.JobLogs(ctx, j.ID)
	if err != nil || len(persisted) == 0 {
		t.Fatalf("expected persisted logs, got %v %v", persisted, err)
	}
}

func TestFailingStageRecordsError(t *testing.T) {
	reg := Registry{StageGenerateReport: func(ctx context.Context, exec ExecutionContext, meetingID int64, params map[string]any) error {
		return errors.New("provider unavailable")
	}}
	runner, st := newTestRunner(t, 1, reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := runner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	j, err := runner.Enqueue(ctx, 3, StageGenerateReport, map[string]any{"report_type": "meeting"})
	if err != nil {
		t.Fatal(err)
	}
	done := waitForStatus(t, st, j.ID, StatusFailed)
	if done.LastError == nil || *done.LastError != "provider unavailable" {
		t.Fatalf("unexpected last error %v", done.LastError)
	}

	// a finished job no longer blocks an identical request
	again, err := runner.Enqueue(ctx, 3, StageGenerateReport, map[string]any{"report_type": "meeting"})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID == j.ID {
		t.Fatal("expected a new job after the previous one finished")
	}
}

func TestUnknownStageFails(t *testing.T) {
	runner, st := newTestRunner(t, 1, Registry{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := runner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	j, err := runner.Enqueue(ctx, 1, Stage("BOGUS"), nil)
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, st, j.ID, StatusFailed)
}

func TestLogRingIsBounded(t *testing.T) {
	runner, _ := newTestRunner(t, 0, Registry{})
	for i := 0; i < logRingSize+10; i++ {
		runner.appendLog(9, "line")
	}
	lines, err := runner.Logs(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != logRingSize {
		t.Fatalf("expected %d lines, got %d", logRingSize, len(lines))
	}
}
