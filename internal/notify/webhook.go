package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"meeting_assistant/internal/events"
	"meeting_assistant/internal/store"
)

// Message represents an outbound notification.
type Message struct {
	Text      string `json:"text"`
	MeetingID int64  `json:"meeting_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Webhook posts meeting outcomes to an HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook returns nil when url is empty; a nil Webhook sends nothing.
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{url: url, client: &http.Client{Timeout: 10 * time.Second}, logger: logger.With("component", "notify")}
}

// Send posts msg as JSON.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	if w == nil {
		return nil
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

// Run forwards completed and failed status changes until ch closes or ctx ends.
func (w *Webhook) Run(ctx context.Context, ch <-chan events.Event) {
	if w == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			msg, ok := messageFor(ev)
			if !ok {
				continue
			}
			if err := w.Send(ctx, msg); err != nil {
				w.logger.Warn("notification failed", "meeting_id", ev.MeetingID, "error", err)
			}
		}
	}
}

func messageFor(ev events.Event) (Message, bool) {
	if ev.Type != events.MeetingStatusChanged {
		return Message{}, false
	}
	switch store.MeetingStatus(ev.Status) {
	case store.MeetingCompleted:
		return Message{Text: fmt.Sprintf("Meeting %d processed", ev.MeetingID), MeetingID: ev.MeetingID, Status: ev.Status}, true
	case store.MeetingFailed:
		return Message{Text: fmt.Sprintf("Meeting %d failed (attempt %d): %s", ev.MeetingID, ev.Attempt, ev.Error), MeetingID: ev.MeetingID, Status: ev.Status, Error: ev.Error}, true
	}
	return Message{}, false
}
