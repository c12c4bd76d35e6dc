package httpapi

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"meeting_assistant/internal/backfill"
	"meeting_assistant/internal/store"
)

func (r *Router) apiHealth(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		respondStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil || !r.runner.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	version := strings.TrimSpace(os.Getenv("GIT_SHA"))
	if version == "" {
		version = "dev"
	}

	qStats := r.runner.Stats()
	r.metrics.UpdateQueue(qStats.Length, qStats.Capacity, qStats.WorkerCount)
	mSnap := r.metrics.Snapshot()

	dbStatus := map[string]any{"db_ok": true, "db_path": r.cfg.DBPath}
	if err := r.store.Health(req.Context()); err != nil {
		dbStatus["db_ok"] = false
		dbStatus["last_db_error"] = err.Error()
	}
	counts, err := r.store.CountMeetings(req.Context())
	if err != nil {
		r.logger.Warn("count meetings", "error", err)
	}

	summary := map[string]any{
		"version": version,
		"uptime":  time.Since(r.started).Round(time.Second).String(),
		"config": map[string]any{
			"DB_PATH":      r.cfg.DBPath,
			"INBOX_DIR":    r.cfg.InboxDir,
			"WORKER_COUNT": r.cfg.WorkerCount,
			"QUEUE_SIZE":   r.cfg.QueueSize,
			"LLM_PROVIDER": r.cfg.LLM.Provider,
			"MAX_ATTEMPTS": r.cfg.Retry.MaxAttempts,
		},
		"queue": map[string]any{
			"queued":       qStats.Length,
			"running":      qStats.Running,
			"succeeded":    mSnap.ProcessedJobs - mSnap.FailedJobs,
			"failed":       mSnap.FailedJobs,
			"worker_count": qStats.WorkerCount,
			"capacity":     qStats.Capacity,
		},
		"pipeline": map[string]any{
			"meetings_uploading":    counts[store.MeetingUploading],
			"meetings_processing":   counts[store.MeetingProcessing],
			"meetings_completed":    counts[store.MeetingCompleted],
			"meetings_failed":       counts[store.MeetingFailed],
			"processing_retries":    mSnap.ProcessingRetries,
			"summaries_regenerated": mSnap.SummariesRegenerated,
			"reports_generated":     mSnap.ReportsGenerated,
		},
		"db":      dbStatus,
		"metrics": mSnap,
	}
	if r.backfill != nil {
		summary["last_backfill"] = r.backfill.Last()
	}
	respondJSON(w, summary)
}

func (r *Router) jobs(w http.ResponseWriter, req *http.Request) {
	var statuses []string
	if s := req.URL.Query().Get("status"); s != "" {
		statuses = strings.Split(s, ",")
	}
	jobs, err := r.store.ListJobs(req.Context(), queryLimit(req, 100, 1000), statuses...)
	if err != nil {
		respondError(w, err)
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	respondJSON(w, jobs)
}

func (r *Router) jobLogs(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	job, err := r.store.GetJob(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	lines, err := r.runner.Logs(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	respondJSON(w, map[string]any{"job": job, "logs": lines})
}

// startBackfill re-dispatches stuck meetings in the background.
func (r *Router) startBackfill(w http.ResponseWriter, req *http.Request) {
	if r.backfill == nil {
		respondStatus(w, http.StatusServiceUnavailable, map[string]string{"error": "backfill unavailable"})
		return
	}
	var opts backfill.Options
	if err := decodeBody(req, &opts); err != nil {
		respondError(w, err)
		return
	}
	backfill.Run(context.WithoutCancel(req.Context()), r.backfill, opts, r.logger)
	respondStatus(w, http.StatusAccepted, map[string]any{"status": "started", "options": opts})
}
