package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meeting_assistant/internal/backfill"
	"meeting_assistant/internal/config"
	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/store"
)

type testEnv struct {
	handler http.Handler
	store   *store.Store
	cfg     config.Config
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		DBPath:      filepath.Join(dir, "test.db"),
		ExportDir:   filepath.Join(dir, "exports"),
		UploadDir:   filepath.Join(dir, "uploads"),
		WorkerCount: 0,
		QueueSize:   4,
		JobTimeout:  time.Second,
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	runner := jobs.NewRunner(cfg, st, jobs.Registry{}, nil, nil)
	router := NewRouter(cfg, st, runner, nil, backfill.NewMeetings(st, runner, nil), nil)
	return &testEnv{handler: router.Handler(), store: st, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e *testEnv) commit(t *testing.T, meetingID int64) {
	t.Helper()
	err := e.store.CommitTranscription(context.Background(), store.TranscriptionCommit{
		MeetingID: meetingID,
		Speakers:  []string{"SPEAKER_00", "SPEAKER_01"},
		Segments: []store.SegmentInput{
			{SpeakerLabel: "SPEAKER_00", Start: 0, End: 2, Text: "Status update please."},
			{SpeakerLabel: "SPEAKER_01", Start: 2, End: 4, Text: "I will send the notes."},
		},
		Summary: store.SummaryInput{FullSummary: "Weekly sync.", KeyPoints: []string{"notes"}},
		Tasks:   []store.TaskInput{{Title: "Send notes", Priority: store.PriorityHigh}},
		At:      config.Now(),
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestCreateAndGetMeeting(t *testing.T) {
	env := setupTest(t)
	rr := env.do(t, http.MethodPost, "/api/meetings", `{"title":"Weekly sync","date":"2025-03-04"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[store.Meeting](t, rr)
	if created.Status != store.MeetingUploading || created.Date == nil {
		t.Fatalf("unexpected meeting %+v", created)
	}

	rr = env.do(t, http.MethodGet, "/api/meetings/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"participants":[]`) {
		t.Fatalf("expected empty participants: %s", rr.Body.String())
	}

	if rr := env.do(t, http.MethodPost, "/api/meetings", `{"title":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank title, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/meetings/99", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if body := decode[map[string]string](t, rr); body["error"] == "" {
		t.Fatalf("expected error body, got %v", body)
	}
	if rr := env.do(t, http.MethodGet, "/api/meetings/abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rr.Code)
	}
}

func TestProcessMeetingQueuesJob(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Planning"}`)
	audio := writeAudio(t, "planning.wav")

	rr := env.do(t, http.MethodPost, "/api/meetings/1/process", `{"audio_file_path":"`+audio+`"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	job := decode[store.Job](t, rr)
	if job.Stage != string(jobs.StageProcessMeeting) || job.Status != jobs.StatusQueued {
		t.Fatalf("unexpected job %+v", job)
	}
	status := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/meetings/1/status", ""))
	if status["status"] != string(store.MeetingProcessing) {
		t.Fatalf("expected processing, got %v", status)
	}

	bad := writeAudio(t, "notes.txt")
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/process", `{"audio_file_path":"`+bad+`"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported audio, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/retry", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when retrying a processing meeting, got %d", rr.Code)
	}
}

func TestUploadAudioStartsProcessing(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Design review"}`)

	upload := func(name string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("RIFF....WAVE")); err != nil {
			t.Fatal(err)
		}
		if err := mw.Close(); err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/meetings/1/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := upload("slides.pdf"); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported upload, got %d", rr.Code)
	}
	rr := upload("Review.WAV")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	m := decode[store.Meeting](t, rr)
	want := filepath.Join(env.cfg.UploadDir, "meeting_1.wav")
	if m.Status != store.MeetingProcessing || m.AudioPath == nil || *m.AudioPath != want {
		t.Fatalf("unexpected meeting %+v", m)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("upload not stored: %v", err)
	}
}

func TestRetryFailedMeeting(t *testing.T) {
	env := setupTest(t)
	audio := writeAudio(t, "retro.mp3")
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Retro","audio_file_path":"`+audio+`"}`)
	msg := "engine crashed"
	if err := env.store.SetMeetingStatus(context.Background(), 1, store.MeetingFailed, &msg, config.Now()); err != nil {
		t.Fatal(err)
	}
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/retry", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	m, err := env.store.GetMeeting(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != store.MeetingProcessing || m.LastError != nil {
		t.Fatalf("expected processing without error, got %+v", m)
	}
}

func TestTranscriptAndParticipantRename(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Sync"}`)
	env.commit(t, 1)

	participants := decode[[]store.Participant](t, env.do(t, http.MethodGet, "/api/meetings/1/participants", ""))
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	rr := env.do(t, http.MethodPut, "/api/meetings/1/participants/1", `{"name":"Ada","email":"ada@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPut, "/api/meetings/1/participants/1", `{"name":""}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", rr.Code)
	}

	transcript := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/meetings/1/transcript", ""))
	text, _ := transcript["full_text"].(string)
	if !strings.HasPrefix(text, "[Ada]: Status update please.") || !strings.Contains(text, "[SPEAKER_01]: I will send the notes.") {
		t.Fatalf("unexpected transcript text %q", text)
	}

	summary := decode[store.Summary](t, env.do(t, http.MethodGet, "/api/meetings/1/summary", ""))
	if summary.FullSummary != "Weekly sync." {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/summary/regenerate", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Sync"}`)
	env.commit(t, 1)

	rr := env.do(t, http.MethodPost, "/api/meetings/1/tasks", `{"title":"Book room","priority":"low","assignee_id":2,"due_date":"2025-03-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	task := decode[store.Task](t, rr)
	if task.Source != store.TaskManual || task.Priority != store.PriorityLow || task.AssigneeID == nil || *task.AssigneeID != 2 {
		t.Fatalf("unexpected task %+v", task)
	}
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/tasks", `{"title":"x","priority":"urgent"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad priority, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/meetings/1/tasks", `{"title":"x","assignee_id":42}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign assignee, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPut, "/api/tasks/1", `{"status":"completed","clear_assignee":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPut, "/api/tasks/1", `{"status":"done"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", rr.Code)
	}

	completed := decode[[]store.Task](t, env.do(t, http.MethodGet, "/api/tasks?status=completed", ""))
	if len(completed) != 1 || completed[0].ID != 1 {
		t.Fatalf("unexpected completed tasks %+v", completed)
	}
	all := decode[[]store.Task](t, env.do(t, http.MethodGet, "/api/meetings/1/tasks", ""))
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}
	if rr := env.do(t, http.MethodGet, "/api/tasks?status=bogus", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Sync"}`)

	rr := env.do(t, http.MethodPost, "/api/reports/generate", `{"report_type":"weekly"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	job := decode[store.Job](t, rr)
	if job.Stage != string(jobs.StageGenerateReport) || !strings.Contains(job.ParamsJSON, `"general":true`) {
		t.Fatalf("unexpected job %+v", job)
	}
	if rr := env.do(t, http.MethodPost, "/api/reports/generate", `{"meeting_id":7}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing meeting, got %d", rr.Code)
	}

	id := int64(1)
	content := json.RawMessage(`{"summary":"Shipped.","highlights":["release"],"next_steps":["retro"]}`)
	if _, err := env.store.InsertReport(context.Background(), &id, store.ReportMeeting, content, config.Now()); err != nil {
		t.Fatal(err)
	}
	reports := decode[[]store.ProgressReport](t, env.do(t, http.MethodGet, "/api/reports?meeting_id=1", ""))
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if rr := env.do(t, http.MethodGet, "/api/reports/1", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/reports/1/docx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Body.String(), "PK") {
		t.Fatalf("expected a zip payload")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.ExportDir, "report-1.docx")); err != nil {
		t.Fatalf("export not written: %v", err)
	}
}

func TestOpsEndpoints(t *testing.T) {
	env := setupTest(t)
	env.do(t, http.MethodPost, "/api/meetings", `{"title":"Sync"}`)

	if rr := env.do(t, http.MethodGet, "/api/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/ops/health", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before workers start, got %d", rr.Code)
	}

	status := decode[map[string]any](t, env.do(t, http.MethodGet, "/ops/status", ""))
	if status["version"] == nil || status["queue"] == nil {
		t.Fatalf("unexpected status payload %v", status)
	}
	pipelineStats, _ := status["pipeline"].(map[string]any)
	if pipelineStats["meetings_uploading"] != float64(1) {
		t.Fatalf("unexpected pipeline stats %v", pipelineStats)
	}

	if rr := env.do(t, http.MethodPost, "/ops/backfill", `{"limit":5}`); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	env.do(t, http.MethodPost, "/api/meetings/1/summary/regenerate", "")
	list := decode[[]store.Job](t, env.do(t, http.MethodGet, "/ops/jobs", ""))
	if len(list) != 1 {
		t.Fatalf("expected 1 job, got %d", len(list))
	}
	if rr := env.do(t, http.MethodGet, "/ops/jobs/1/logs", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/ops/jobs/9/logs", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
