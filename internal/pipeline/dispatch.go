package pipeline

import (
	"context"
	"fmt"
	"strings"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/store"
	"meeting_assistant/internal/transcribe"
)

// Dispatcher queues pipeline work. *jobs.Runner implements it.
type Dispatcher interface {
	Enqueue(ctx context.Context, meetingID int64, stage jobs.Stage, params map[string]any) (*store.Job, error)
}

// StartProcessing attaches audioPath (when given), moves the meeting to
// processing and dispatches a processing job.
func StartProcessing(ctx context.Context, repo Repository, d Dispatcher, meetingID int64, audioPath string) (*store.Job, error) {
	m, err := repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" && m.AudioPath != nil {
		audioPath = *m.AudioPath
	}
	if audioPath == "" {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, ErrNoAudio)
	}
	if err := transcribe.Validate(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if m.AudioPath == nil || *m.AudioPath != audioPath {
		if err := repo.AttachAudio(ctx, meetingID, audioPath, config.Now()); err != nil {
			return nil, err
		}
	}
	if err := repo.SetMeetingStatus(ctx, meetingID, store.MeetingProcessing, nil, config.Now()); err != nil {
		return nil, err
	}
	return d.Enqueue(ctx, meetingID, jobs.StageProcessMeeting, nil)
}

// RetryMeeting re-dispatches a failed meeting.
func RetryMeeting(ctx context.Context, repo Repository, d Dispatcher, meetingID int64) (*store.Job, error) {
	m, err := repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MeetingFailed {
		return nil, fmt.Errorf("%w: meeting %d is %s, only failed meetings can be retried", store.ErrInvalid, meetingID, m.Status)
	}
	return StartProcessing(ctx, repo, d, meetingID, "")
}

// RequestSummary dispatches summary regeneration for an existing meeting.
func RequestSummary(ctx context.Context, repo Repository, d Dispatcher, meetingID int64) (*store.Job, error) {
	if _, err := repo.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return d.Enqueue(ctx, meetingID, jobs.StageRegenerateSummary, nil)
}

// RequestReport dispatches report generation. A nil meetingID asks for a
// general report.
func RequestReport(ctx context.Context, repo Repository, d Dispatcher, meetingID *int64, reportType store.ReportType) (*store.Job, error) {
	params := map[string]any{"report_type": string(store.ParseReportType(string(reportType)))}
	var id int64
	if meetingID != nil {
		if _, err := repo.GetMeeting(ctx, *meetingID); err != nil {
			return nil, err
		}
		id = *meetingID
	} else {
		params["general"] = true
	}
	return d.Enqueue(ctx, id, jobs.StageGenerateReport, params)
}
