package store

import (
	"encoding/json"
	"strings"
	"time"
)

// MeetingStatus tracks the processing lifecycle of a meeting.
type MeetingStatus string

const (
	MeetingUploading  MeetingStatus = "uploading"
	MeetingProcessing MeetingStatus = "processing"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingFailed     MeetingStatus = "failed"
)

// Priority of a task. Unknown values coerce to medium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalises s, falling back to medium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// TaskStatus of an action item.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}

// TaskSource records whether a task came from extraction or a user.
type TaskSource string

const (
	TaskExtracted TaskSource = "extracted"
	TaskManual    TaskSource = "manual"
)

// ReportType classifies a progress report.
type ReportType string

const (
	ReportMeeting ReportType = "meeting"
	ReportWeekly  ReportType = "weekly"
	ReportCustom  ReportType = "custom"
)

// ParseReportType normalises s, falling back to meeting.
func ParseReportType(s string) ReportType {
	switch ReportType(strings.ToLower(strings.TrimSpace(s))) {
	case ReportWeekly:
		return ReportWeekly
	case ReportCustom:
		return ReportCustom
	default:
		return ReportMeeting
	}
}

// Meeting is the root aggregate for one recorded session.
type Meeting struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Description     *string       `json:"description"`
	Date            *time.Time    `json:"date"`
	AudioPath       *string       `json:"audio_file_path"`
	DurationSeconds *float64      `json:"duration_seconds"`
	Status          MeetingStatus `json:"status"`
	LastError       *string       `json:"last_error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Participant is a person (or anonymous speaker) in a meeting.
type Participant struct {
	ID           int64     `json:"id"`
	MeetingID    int64     `json:"meeting_id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email"`
	SpeakerLabel *string   `json:"speaker_label"`
	CreatedAt    time.Time `json:"created_at"`
}

// TranscriptSegment is one contiguous utterance of a speaker.
type TranscriptSegment struct {
	ID              int64    `json:"id"`
	MeetingID       int64    `json:"meeting_id"`
	ParticipantID   *int64   `json:"participant_id"`
	ParticipantName *string  `json:"participant_name,omitempty"`
	SpeakerLabel    string   `json:"speaker_label"`
	StartTime       float64  `json:"start_time"`
	EndTime         float64  `json:"end_time"`
	Text            string   `json:"text"`
	Confidence      *float64 `json:"confidence"`
	SegmentOrder    int      `json:"segment_order"`
}

// DisplayName is the participant name when linked, otherwise the raw label.
func (s TranscriptSegment) DisplayName() string {
	if s.ParticipantName != nil && strings.TrimSpace(*s.ParticipantName) != "" {
		return *s.ParticipantName
	}
	return s.SpeakerLabel
}

// Summary is the single narrative summary of a meeting.
type Summary struct {
	ID          int64     `json:"id"`
	MeetingID   int64     `json:"meeting_id"`
	FullSummary string    `json:"full_summary"`
	KeyPoints   []string  `json:"key_points"`
	Decisions   []string  `json:"decisions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SummaryInput carries the fields written on summary upsert.
type SummaryInput struct {
	FullSummary string
	KeyPoints   []string
	Decisions   []string
}

// Task is an action item attached to a meeting.
type Task struct {
	ID           int64      `json:"id"`
	MeetingID    int64      `json:"meeting_id"`
	AssigneeID   *int64     `json:"assignee_id"`
	AssigneeName *string    `json:"assignee_name,omitempty"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Priority     Priority   `json:"priority"`
	Status       TaskStatus `json:"status"`
	DueDate      *time.Time `json:"due_date"`
	Source       TaskSource `json:"source"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProgressReport is an immutable generated report.
type ProgressReport struct {
	ID          int64           `json:"id"`
	MeetingID   *int64          `json:"meeting_id"`
	ReportType  ReportType      `json:"report_type"`
	Content     json.RawMessage `json:"content"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Job represents a pipeline job persisted to DB.
type Job struct {
	ID             int64      `json:"id"`
	MeetingID      int64      `json:"meeting_id"`
	Stage          string     `json:"stage"`
	Status         string     `json:"status"`
	ParamsJSON     string     `json:"params_json"`
	IdempotencyKey string     `json:"idempotency_key"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	LastError      *string    `json:"last_error,omitempty"`
}
