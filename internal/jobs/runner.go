package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/metrics"
	"meeting_assistant/internal/queue"
	"meeting_assistant/internal/store"
)

// Status values for jobs.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Stage names a unit of pipeline work.
type Stage string

const (
	StageProcessMeeting    Stage = "PROCESS_MEETING"
	StageRegenerateSummary Stage = "REGENERATE_SUMMARY"
	StageGenerateReport    Stage = "GENERATE_REPORT"
)

// ErrQueueFull is returned when a job was recorded but no worker slot was free.
var ErrQueueFull = errors.New("job queue full")

const logRingSize = 200

// ExecutionContext is handed to a stage for its job's logging.
type ExecutionContext struct {
	JobID int64
	Logf  func(format string, args ...any)
}

// StageFunc implements one stage for one meeting.
type StageFunc func(ctx context.Context, exec ExecutionContext, meetingID int64, params map[string]any) error

// Registry maps stages to implementations.
type Registry map[Stage]StageFunc

// Runner persists jobs and executes them on a bounded worker pool.
type Runner struct {
	store   *store.Store
	reg     Registry
	queue   *queue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger

	logMu     sync.Mutex
	logBuffer map[int64][]string
}

// NewRunner constructs a runner. Jobs enqueued before Start stay queued in
// the database and are picked up by Start.
func NewRunner(cfg config.Config, st *store.Store, reg Registry, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Runner{
		store:     st,
		reg:       reg,
		queue:     queue.New(cfg.QueueSize, cfg.WorkerCount, cfg.JobTimeout, logger),
		metrics:   m,
		logger:    logger.With("component", "jobs"),
		logBuffer: make(map[int64][]string),
	}
}

// Start spins the worker pool and resubmits jobs left queued or running.
func (r *Runner) Start(ctx context.Context) error {
	r.queue.Start(ctx)
	pending, err := r.store.ListJobs(ctx, 1000, StatusQueued, StatusRunning)
	if err != nil {
		return fmt.Errorf("recover jobs: %w", err)
	}
	slices.Reverse(pending)
	for i := range pending {
		j := pending[i]
		if ok, _ := r.queue.EnqueueWithRetry(ctx, r.queueJob(&j), 5*time.Second, 100*time.Millisecond); !ok {
			r.logger.Warn("could not resubmit job", "job_id", j.ID, "stage", j.Stage)
			continue
		}
		r.logger.Info("resubmitted job", "job_id", j.ID, "stage", j.Stage, "meeting_id", j.MeetingID)
	}
	return nil
}

// Stop stops accepting jobs and waits for running ones until ctx ends.
func (r *Runner) Stop(ctx context.Context) {
	r.queue.Stop(ctx)
}

// Enqueue records a job and submits it. An identical job that is still
// queued or running is returned instead of a new one.
func (r *Runner) Enqueue(ctx context.Context, meetingID int64, stage Stage, params map[string]any) (*store.Job, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	now := config.Now()
	job := &store.Job{
		MeetingID:      meetingID,
		Stage:          string(stage),
		Status:         StatusQueued,
		ParamsJSON:     string(payload),
		IdempotencyKey: idempotencyKey(meetingID, stage, payload),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	j, err := r.store.InsertJobIdempotent(ctx, job)
	if errors.Is(err, store.ErrConflict) {
		return j, nil
	}
	if err != nil {
		return nil, err
	}
	if !r.queue.Healthy() {
		return j, nil
	}
	if !r.queue.Enqueue(r.queueJob(j)) {
		msg := ErrQueueFull.Error()
		_ = r.store.MarkJobFinished(ctx, j.ID, StatusFailed, &msg, config.Now())
		return nil, ErrQueueFull
	}
	return j, nil
}

// Stats reports queue occupancy.
func (r *Runner) Stats() queue.Stats { return r.queue.Stats() }

// Healthy reports whether workers are accepting jobs.
func (r *Runner) Healthy() bool { return r.queue.Healthy() }

func (r *Runner) queueJob(j *store.Job) queue.Job {
	return queue.Job{
		ID:     strconv.FormatInt(j.ID, 10),
		Source: j.Stage,
		Work: func(ctx context.Context) error {
			return r.execute(ctx, j)
		},
	}
}

func (r *Runner) execute(ctx context.Context, job *store.Job) error {
	// bookkeeping must land even when the job deadline has passed
	bg := context.WithoutCancel(ctx)
	fn, ok := r.reg[Stage(job.Stage)]
	if !ok {
		err := fmt.Errorf("no handler for stage %s", job.Stage)
		r.finish(bg, job.ID, err)
		return err
	}
	if err := r.store.MarkJobStarted(bg, job.ID, config.Now()); err != nil {
		r.logger.Warn("mark job started", "job_id", job.ID, "error", err)
	}
	params := map[string]any{}
	if err := json.Unmarshal([]byte(job.ParamsJSON), &params); err != nil {
		r.logger.Warn("job params are not valid JSON", "job_id", job.ID, "error", err)
	}
	exec := ExecutionContext{
		JobID: job.ID,
		Logf: func(format string, args ...any) {
			r.appendLog(job.ID, fmt.Sprintf(format, args...))
		},
	}
	r.appendLog(job.ID, fmt.Sprintf("started %s for meeting %d", job.Stage, job.MeetingID))
	err := fn(ctx, exec, job.MeetingID, params)
	r.finish(bg, job.ID, err)
	return err
}

func (r *Runner) finish(ctx context.Context, jobID int64, err error) {
	r.metrics.RecordJobCompletion(err)
	status := StatusSucceeded
	var msg *string
	if err != nil {
		status = StatusFailed
		s := err.Error()
		msg = &s
		r.appendLog(jobID, "error: "+s)
	} else {
		r.appendLog(jobID, "succeeded")
	}
	if err := r.store.MarkJobFinished(ctx, jobID, status, msg, config.Now()); err != nil {
		r.logger.Warn("mark job finished", "job_id", jobID, "error", err)
	}
}

func (r *Runner) appendLog(jobID int64, msg string) {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	ts := config.Now()
	if err := r.store.AppendJobLog(context.Background(), jobID, msg, ts); err != nil {
		r.logger.Warn("persist job log", "job_id", jobID, "error", err)
	}
	buf := append(r.logBuffer[jobID], fmt.Sprintf("%s %s", ts.Format(time.RFC3339), msg))
	if len(buf) > logRingSize {
		buf = buf[len(buf)-logRingSize:]
	}
	r.logBuffer[jobID] = buf
}

// Logs returns the in-memory log ring for a job, falling back to persisted
// lines for jobs run by an earlier process.
func (r *Runner) Logs(ctx context.Context, jobID int64) ([]string, error) {
	r.logMu.Lock()
	lines := append([]string(nil), r.logBuffer[jobID]...)
	r.logMu.Unlock()
	if len(lines) > 0 {
		return lines, nil
	}
	if _, err := r.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return r.store.JobLogs(ctx, jobID)
}

func idempotencyKey(meetingID int64, stage Stage, params []byte) string {
	h := sha256.Sum256([]byte(strconv.FormatInt(meetingID, 10) + "|" + string(stage) + "|" + string(params)))
	return hex.EncodeToString(h[:])
}
