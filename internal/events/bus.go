package events

import (
	"sync"
	"time"
)

// Event types published by the pipeline.
const (
	MeetingStatusChanged = "meeting_status_changed"
	SummaryRegenerated   = "summary_regenerated"
	ReportGenerated      = "report_generated"
)

// Event is a single pipeline notification.
type Event struct {
	Type      string    `json:"type"`
	MeetingID int64     `json:"meeting_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	ReportID  int64     `json:"report_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	At        time.Time `json:"at"`
}

// Bus provides simple in-process pub/sub for observability.
// Slow subscribers miss events rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
