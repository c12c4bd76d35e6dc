package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// GetSummary returns the meeting's summary or ErrNotFound.
func (s *Store) GetSummary(ctx context.Context, meetingID int64) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, meeting_id, full_summary, key_points_json, decisions_json, created_at, updated_at FROM summaries WHERE meeting_id=?`, meetingID)
	var sum Summary
	var keyPoints, decisions string
	err := row.Scan(&sum.ID, &sum.MeetingID, &sum.FullSummary, &keyPoints, &decisions, &sum.CreatedAt, &sum.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("summary for meeting", meetingID)
	}
	if err != nil {
		return nil, err
	}
	sum.KeyPoints = decodeStrings(keyPoints)
	sum.Decisions = decodeStrings(decisions)
	return &sum, nil
}

// UpsertSummary replaces the meeting's summary wholesale.
func (s *Store) UpsertSummary(ctx context.Context, meetingID int64, in SummaryInput, ts time.Time) (*Summary, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM meetings WHERE id=?`, meetingID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return notFound("meeting", meetingID)
		}
		return upsertSummary(ctx, tx, meetingID, in, ts)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSummary(ctx, meetingID)
}

func decodeStrings(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
