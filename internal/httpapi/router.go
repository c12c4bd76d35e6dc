package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meeting_assistant/internal/backfill"
	"meeting_assistant/internal/config"
	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/metrics"
	"meeting_assistant/internal/store"
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg      config.Config
	store    *store.Store
	runner   *jobs.Runner
	metrics  *metrics.Metrics
	backfill *backfill.Meetings
	logger   *slog.Logger
	started  time.Time
}

func NewRouter(cfg config.Config, st *store.Store, runner *jobs.Runner, m *metrics.Metrics, bf *backfill.Meetings, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Router{cfg: cfg, store: st, runner: runner, metrics: m, backfill: bf, logger: logger.With("component", "http"), started: time.Now()}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/meetings", r.createMeeting)
	mux.HandleFunc("GET /api/meetings", r.listMeetings)
	mux.HandleFunc("GET /api/meetings/{id}", r.getMeeting)
	mux.HandleFunc("DELETE /api/meetings/{id}", r.deleteMeeting)
	mux.HandleFunc("GET /api/meetings/{id}/status", r.meetingStatus)
	mux.HandleFunc("POST /api/meetings/{id}/process", r.processMeeting)
	mux.HandleFunc("POST /api/meetings/{id}/upload", r.uploadAudio)
	mux.HandleFunc("POST /api/meetings/{id}/retry", r.retryMeeting)
	mux.HandleFunc("GET /api/meetings/{id}/participants", r.listParticipants)
	mux.HandleFunc("PUT /api/meetings/{id}/participants/{pid}", r.updateParticipant)
	mux.HandleFunc("GET /api/meetings/{id}/transcript", r.transcript)
	mux.HandleFunc("GET /api/meetings/{id}/summary", r.getSummary)
	mux.HandleFunc("POST /api/meetings/{id}/summary/regenerate", r.regenerateSummary)
	mux.HandleFunc("GET /api/meetings/{id}/tasks", r.meetingTasks)
	mux.HandleFunc("POST /api/meetings/{id}/tasks", r.createTask)
	mux.HandleFunc("GET /api/tasks", r.listTasks)
	mux.HandleFunc("PUT /api/tasks/{id}", r.updateTask)
	mux.HandleFunc("GET /api/reports", r.listReports)
	mux.HandleFunc("POST /api/reports/generate", r.generateReport)
	mux.HandleFunc("GET /api/reports/{id}", r.getReport)
	mux.HandleFunc("GET /api/reports/{id}/docx", r.reportDocx)
	mux.HandleFunc("GET /api/health", r.apiHealth)

	mux.HandleFunc("GET /ops/health", r.health)
	mux.HandleFunc("GET /ops/status", r.status)
	mux.HandleFunc("GET /ops/jobs", r.jobs)
	mux.HandleFunc("GET /ops/jobs/{id}/logs", r.jobLogs)
	mux.HandleFunc("POST /ops/backfill", r.startBackfill)
}

// Handler returns a mux with every route registered and request logging.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	r.Register(mux)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, req)
		r.logger.Debug("request", "method", req.Method, "path", req.URL.Path, "status", rec.status, "duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func respondJSON(w http.ResponseWriter, payload any) {
	respondStatus(w, http.StatusOK, payload)
}

func respondStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json", "error", err)
	}
}

// respondError maps domain errors to status codes.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalid), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, jobs.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	respondStatus(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func pathID(req *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(req.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, req.PathValue(name))
	}
	return id, nil
}

func decodeBody(req *http.Request, out any) error {
	if req.Body == nil || req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func queryLimit(req *http.Request, def, maxLimit int) int {
	v, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || v <= 0 {
		return def
	}
	return min(v, maxLimit)
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("invalid date %q", s)
}
