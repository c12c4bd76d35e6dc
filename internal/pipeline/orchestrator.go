// Package pipeline drives a meeting from uploaded audio to transcript,
// summary and tasks, and produces summaries and reports on demand.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meeting_assistant/internal/analysis"
	"meeting_assistant/internal/config"
	"meeting_assistant/internal/events"
	"meeting_assistant/internal/llm"
	"meeting_assistant/internal/metrics"
	"meeting_assistant/internal/report"
	"meeting_assistant/internal/store"
	"meeting_assistant/internal/transcribe"
)

// ErrNoAudio is returned when a meeting is processed before audio was attached.
var ErrNoAudio = errors.New("meeting has no audio file")

// Repository is the persistence the orchestrator needs. *store.Store
// implements it.
type Repository interface {
	GetMeeting(ctx context.Context, id int64) (*store.Meeting, error)
	SetMeetingStatus(ctx context.Context, id int64, status store.MeetingStatus, errMsg *string, ts time.Time) error
	AttachAudio(ctx context.Context, id int64, path string, ts time.Time) error
	CommitTranscription(ctx context.Context, c store.TranscriptionCommit) error
	ListSegments(ctx context.Context, meetingID int64) ([]store.TranscriptSegment, error)
	GetSummary(ctx context.Context, meetingID int64) (*store.Summary, error)
	UpsertSummary(ctx context.Context, meetingID int64, in store.SummaryInput, ts time.Time) (*store.Summary, error)
	ListTasks(ctx context.Context, f store.TaskFilter) ([]store.Task, error)
	InsertReport(ctx context.Context, meetingID *int64, reportType store.ReportType, content json.RawMessage, ts time.Time) (*store.ProgressReport, error)
}

// Analyzer summarises transcripts and extracts action items.
type Analyzer interface {
	Summarize(ctx context.Context, transcript string) (analysis.Summary, error)
	ExtractTasks(ctx context.Context, transcript string, participants []string) ([]analysis.Task, error)
}

// ReportSynthesizer turns a summary and tasks into report content.
type ReportSynthesizer interface {
	Generate(ctx context.Context, in report.Input) (report.Content, error)
}

// RetryPolicy bounds processing attempts. MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 60 * time.Second}
}

// Options carries the optional collaborators of an Orchestrator.
type Options struct {
	Retry   RetryPolicy
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Orchestrator runs the processing, regeneration and report operations.
type Orchestrator struct {
	repo     Repository
	engine   transcribe.Engine
	analyzer Analyzer
	reports  ReportSynthesizer
	retry    RetryPolicy
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(repo Repository, engine transcribe.Engine, analyzer Analyzer, reports ReportSynthesizer, opts Options) *Orchestrator {
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		repo:     repo,
		engine:   engine,
		analyzer: analyzer,
		reports:  reports,
		retry:    opts.Retry,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "pipeline"),
	}
}

// ProcessMeeting transcribes the meeting's audio and commits participants,
// segments, summary and tasks in one transaction. A failed attempt marks the
// meeting failed and, while attempts remain, retries after the policy delay.
// A missing meeting is returned as store.ErrNotFound and never retried.
func (o *Orchestrator) ProcessMeeting(ctx context.Context, meetingID int64) error {
	log := o.logger.With("meeting_id", meetingID, "run_id", uuid.NewString())
	m, err := o.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.AudioPath == nil || strings.TrimSpace(*m.AudioPath) == "" {
		o.markFailed(ctx, meetingID, ErrNoAudio, 1)
		o.metrics.RecordMeeting(ErrNoAudio)
		return ErrNoAudio
	}

	for attempt := 1; ; attempt++ {
		if err := o.setStatus(ctx, meetingID, store.MeetingProcessing, attempt); err != nil {
			return err
		}
		log.Info("processing meeting", "attempt", attempt, "audio", *m.AudioPath)
		start := time.Now()
		err := o.runOnce(ctx, meetingID, *m.AudioPath, log)
		if err == nil {
			o.metrics.RecordMeeting(nil)
			o.publish(events.Event{Type: events.MeetingStatusChanged, MeetingID: meetingID, Status: string(store.MeetingCompleted), Attempt: attempt})
			log.Info("meeting processed", "attempt", attempt, "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		log.Error("processing attempt failed", "attempt", attempt, "transient", transientFailure(err), "error", err)
		o.markFailed(ctx, meetingID, err, attempt)
		if attempt >= o.retry.MaxAttempts {
			o.metrics.RecordMeeting(err)
			return fmt.Errorf("process meeting %d: %w", meetingID, err)
		}
		o.metrics.RecordRetry()
		if werr := wait(ctx, o.retry.Delay); werr != nil {
			o.metrics.RecordMeeting(err)
			return fmt.Errorf("process meeting %d: %w", meetingID, err)
		}
	}
}

// transientFailure reports whether err looks like it could clear on its own.
// Provider errors carry their own classification; anything else counts as
// transient. Every failure is still retried within the policy bound.
func transientFailure(err error) bool {
	var perr *llm.Error
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return true
}

func (o *Orchestrator) runOnce(ctx context.Context, meetingID int64, audioPath string, log *slog.Logger) error {
	segments, err := o.engine.Process(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	speakers := make([]string, 0)
	seen := map[string]bool{}
	inputs := make([]store.SegmentInput, 0, len(segments))
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			speakers = append(speakers, s.Speaker)
		}
		inputs = append(inputs, store.SegmentInput{
			SpeakerLabel: s.Speaker,
			Start:        s.Start,
			End:          s.End,
			Text:         s.Text,
			Confidence:   s.Confidence,
		})
		lines = append(lines, fmt.Sprintf("[%s]: %s", s.Speaker, s.Text))
	}
	var duration *float64
	if n := len(segments); n > 0 {
		d := segments[n-1].End
		duration = &d
	}
	transcript := strings.Join(lines, "\n")
	log.Info("transcribed", "segments", len(segments), "speakers", len(speakers))

	var (
		wg                 sync.WaitGroup
		summary            analysis.Summary
		tasks              []analysis.Task
		summaryErr, tskErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		summary, summaryErr = o.analyzer.Summarize(ctx, transcript)
	}()
	go func() {
		defer wg.Done()
		tasks, tskErr = o.analyzer.ExtractTasks(ctx, transcript, speakers)
	}()
	wg.Wait()
	if err := errors.Join(summaryErr, tskErr); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	taskInputs := make([]store.TaskInput, 0, len(tasks))
	for _, t := range tasks {
		taskInputs = append(taskInputs, store.TaskInput{
			Title:        t.Title,
			Description:  optional(t.Description),
			Priority:     store.ParsePriority(string(t.Priority)),
			AssigneeName: optional(t.Assignee),
		})
	}
	return o.repo.CommitTranscription(ctx, store.TranscriptionCommit{
		MeetingID: meetingID,
		Speakers:  speakers,
		Segments:  inputs,
		Duration:  duration,
		Summary: store.SummaryInput{
			FullSummary: summary.FullSummary,
			KeyPoints:   summary.KeyPoints,
			Decisions:   summary.Decisions,
		},
		Tasks: taskInputs,
		At:    config.Now(),
	})
}

// RegenerateSummary re-summarises the stored transcript and replaces the
// meeting's summary. Status, transcript and tasks are unchanged.
func (o *Orchestrator) RegenerateSummary(ctx context.Context, meetingID int64) (*store.Summary, error) {
	if _, err := o.repo.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	segments, err := o.repo.ListSegments(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	summary, err := o.analyzer.Summarize(ctx, TranscriptText(segments))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	saved, err := o.repo.UpsertSummary(ctx, meetingID, store.SummaryInput{
		FullSummary: summary.FullSummary,
		KeyPoints:   summary.KeyPoints,
		Decisions:   summary.Decisions,
	}, config.Now())
	if err != nil {
		return nil, err
	}
	o.metrics.RecordSummaryRegenerated()
	o.publish(events.Event{Type: events.SummaryRegenerated, MeetingID: meetingID})
	o.logger.Info("summary regenerated", "meeting_id", meetingID, "segments", len(segments), "structured", summary.Structured)
	return saved, nil
}

// GenerateReport synthesises and appends a report. Without a meeting id the
// unsupported general-report placeholder is stored.
func (o *Orchestrator) GenerateReport(ctx context.Context, meetingID *int64, reportType store.ReportType) (*store.ProgressReport, error) {
	reportType = store.ParseReportType(string(reportType))
	var content report.Content
	if meetingID == nil {
		content = report.Unsupported()
	} else {
		in, err := o.reportInput(ctx, *meetingID)
		if err != nil {
			return nil, err
		}
		content, err = o.reports.Generate(ctx, in)
		if err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	rep, err := o.repo.InsertReport(ctx, meetingID, reportType, raw, config.Now())
	if err != nil {
		return nil, err
	}
	o.metrics.RecordReportGenerated()
	ev := events.Event{Type: events.ReportGenerated, ReportID: rep.ID}
	if meetingID != nil {
		ev.MeetingID = *meetingID
	}
	o.publish(ev)
	return rep, nil
}

func (o *Orchestrator) reportInput(ctx context.Context, meetingID int64) (report.Input, error) {
	m, err := o.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return report.Input{}, err
	}
	view := report.SummaryView{KeyPoints: []string{}}
	summary, err := o.repo.GetSummary(ctx, meetingID)
	switch {
	case err == nil:
		view.FullSummary = summary.FullSummary
		if summary.KeyPoints != nil {
			view.KeyPoints = summary.KeyPoints
		}
	case !errors.Is(err, store.ErrNotFound):
		return report.Input{}, err
	}
	tasks, err := o.repo.ListTasks(ctx, store.TaskFilter{MeetingID: meetingID})
	if err != nil {
		return report.Input{}, err
	}
	lines := make([]report.TaskLine, 0, len(tasks))
	for _, t := range tasks {
		line := report.TaskLine{Title: t.Title, Status: string(t.Status), Priority: string(t.Priority)}
		if t.AssigneeName != nil {
			line.AssigneeName = *t.AssigneeName
		}
		lines = append(lines, line)
	}
	return report.Input{MeetingTitle: m.Title, Summary: view, Tasks: lines}, nil
}

// TranscriptText renders segments as "[name]: text" lines, using the linked
// participant name when there is one.
func TranscriptText(segments []store.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s]: %s", s.DisplayName(), s.Text))
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) setStatus(ctx context.Context, meetingID int64, status store.MeetingStatus, attempt int) error {
	if err := o.repo.SetMeetingStatus(ctx, meetingID, status, nil, config.Now()); err != nil {
		return err
	}
	o.publish(events.Event{Type: events.MeetingStatusChanged, MeetingID: meetingID, Status: string(status), Attempt: attempt})
	return nil
}

// markFailed writes the failed status outside any run transaction so it
// survives the rollback and a cancelled context.
func (o *Orchestrator) markFailed(ctx context.Context, meetingID int64, cause error, attempt int) {
	msg := cause.Error()
	if err := o.repo.SetMeetingStatus(context.WithoutCancel(ctx), meetingID, store.MeetingFailed, &msg, config.Now()); err != nil {
		o.logger.Error("could not mark meeting failed", "meeting_id", meetingID, "error", err)
	}
	o.publish(events.Event{Type: events.MeetingStatusChanged, MeetingID: meetingID, Status: string(store.MeetingFailed), Error: msg, Attempt: attempt})
}

func (o *Orchestrator) publish(ev events.Event) {
	o.bus.Publish(ev)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
