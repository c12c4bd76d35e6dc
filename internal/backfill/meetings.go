package backfill

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/pipeline"
	"meeting_assistant/internal/store"
)

// MeetingStore lists meetings and provides what re-dispatch needs.
type MeetingStore interface {
	pipeline.Repository
	ListMeetings(ctx context.Context, limit int, statuses ...store.MeetingStatus) ([]store.Meeting, error)
}

// Meetings is the Repository over stored meetings and the job dispatcher.
type Meetings struct {
	store      MeetingStore
	dispatcher pipeline.Dispatcher
	logger     *slog.Logger

	mu   sync.Mutex
	last *Summary
}

func NewMeetings(st MeetingStore, d pipeline.Dispatcher, logger *slog.Logger) *Meetings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meetings{store: st, dispatcher: d, logger: logger.With("component", "backfill")}
}

func (m *Meetings) ListCandidates(ctx context.Context) ([]Record, error) {
	meetings, err := m.store.ListMeetings(ctx, 10000, store.MeetingProcessing, store.MeetingFailed, store.MeetingCompleted)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(meetings))
	for _, mt := range meetings {
		out = append(out, Record{MeetingID: mt.ID, Title: mt.Title, Status: mt.Status, UpdatedAt: mt.UpdatedAt})
	}
	return out, nil
}

func (m *Meetings) QueueRecord(ctx context.Context, rec Record) (EnqueueResult, error) {
	_, err := pipeline.StartProcessing(ctx, m.store, m.dispatcher, rec.MeetingID, "")
	switch {
	case err == nil:
		return EnqueueResult{Enqueued: true}, nil
	case errors.Is(err, jobs.ErrQueueFull):
		return EnqueueResult{DroppedFull: true}, nil
	default:
		return EnqueueResult{}, err
	}
}

func (m *Meetings) OnBackfillComplete(summary Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &summary
}

// Last returns the summary of the most recent completed run, if any.
func (m *Meetings) Last() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}
