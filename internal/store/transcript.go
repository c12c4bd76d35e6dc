package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SegmentInput is one engine segment ready to persist.
type SegmentInput struct {
	SpeakerLabel string
	Start        float64
	End          float64
	Text         string
	Confidence   *float64
}

// TaskInput is one extracted action item ready to persist.
type TaskInput struct {
	Title        string
	Description  *string
	Priority     Priority
	AssigneeName *string
}

// TranscriptionCommit is everything a successful processing run writes.
type TranscriptionCommit struct {
	MeetingID int64
	Speakers  []string
	Segments  []SegmentInput
	Duration  *float64
	Summary   SummaryInput
	Tasks     []TaskInput
	At        time.Time
}

// CommitTranscription replaces the meeting's engine-derived artifacts and
// marks it completed, all in one transaction. Manual tasks and tasks of other
// meetings are untouched.
func (s *Store) CommitTranscription(ctx context.Context, c TranscriptionCommit) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM meetings WHERE id=?`, c.MeetingID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return notFound("meeting", c.MeetingID)
		}

		resets := []string{
			`DELETE FROM transcript_segments WHERE meeting_id=?`,
			`DELETE FROM tasks WHERE meeting_id=? AND source='extracted'`,
			`DELETE FROM participants WHERE meeting_id=? AND speaker_label IS NOT NULL`,
		}
		for _, stmt := range resets {
			if _, err := tx.ExecContext(ctx, stmt, c.MeetingID); err != nil {
				return err
			}
		}

		byLabel := make(map[string]int64, len(c.Speakers))
		for _, label := range c.Speakers {
			if _, dup := byLabel[label]; dup {
				continue
			}
			res, err := tx.ExecContext(ctx, `INSERT INTO participants(meeting_id, name, speaker_label, created_at) VALUES(?,?,?,?)`,
				c.MeetingID, label, label, c.At)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			byLabel[label] = id
		}

		for i, seg := range c.Segments {
			pid, ok := byLabel[seg.SpeakerLabel]
			if !ok {
				return fmt.Errorf("segment %d references unknown speaker %q", i, seg.SpeakerLabel)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO transcript_segments(meeting_id, participant_id, speaker_label, start_time, end_time, text, confidence, segment_order) VALUES(?,?,?,?,?,?,?,?)`,
				c.MeetingID, pid, seg.SpeakerLabel, seg.Start, seg.End, seg.Text, nullableFloat(seg.Confidence), i); err != nil {
				return err
			}
		}

		if err := upsertSummary(ctx, tx, c.MeetingID, c.Summary, c.At); err != nil {
			return err
		}

		// Participant names equal their labels within a fresh run.
		for _, t := range c.Tasks {
			var assignee *int64
			if t.AssigneeName != nil {
				if id, ok := byLabel[strings.TrimSpace(*t.AssigneeName)]; ok {
					assignee = &id
				}
			}
			priority := t.Priority
			if !priority.Valid() {
				priority = PriorityMedium
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(meeting_id, assignee_id, title, description, priority, status, source, created_at, updated_at) VALUES(?,?,?,?,?,?,?,?,?)`,
				c.MeetingID, nullableInt64(assignee), t.Title, nullableString(t.Description), string(priority), string(TaskPending), string(TaskExtracted), c.At, c.At); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `UPDATE meetings SET duration_seconds=?, status=?, last_error=NULL, updated_at=? WHERE id=?`,
			nullableFloat(c.Duration), string(MeetingCompleted), c.At, c.MeetingID)
		return err
	})
}

// ListSegments returns a meeting's segments by segment_order with linked
// participant names.
func (s *Store) ListSegments(ctx context.Context, meetingID int64) ([]TranscriptSegment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts.id, ts.meeting_id, ts.participant_id, p.name, ts.speaker_label, ts.start_time, ts.end_time, ts.text, ts.confidence, ts.segment_order
		FROM transcript_segments ts LEFT JOIN participants p ON p.id = ts.participant_id
		WHERE ts.meeting_id=? ORDER BY ts.segment_order ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TranscriptSegment
	for rows.Next() {
		var seg TranscriptSegment
		var pid sql.NullInt64
		var name sql.NullString
		var conf sql.NullFloat64
		if err := rows.Scan(&seg.ID, &seg.MeetingID, &pid, &name, &seg.SpeakerLabel, &seg.StartTime, &seg.EndTime, &seg.Text, &conf, &seg.SegmentOrder); err != nil {
			return nil, err
		}
		if pid.Valid {
			seg.ParticipantID = &pid.Int64
		}
		if name.Valid {
			seg.ParticipantName = &name.String
		}
		if conf.Valid {
			seg.Confidence = &conf.Float64
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func upsertSummary(ctx context.Context, tx *sql.Tx, meetingID int64, in SummaryInput, ts time.Time) error {
	keyPoints, err := json.Marshal(nonNil(in.KeyPoints))
	if err != nil {
		return err
	}
	decisions, err := json.Marshal(nonNil(in.Decisions))
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO summaries(meeting_id, full_summary, key_points_json, decisions_json, created_at, updated_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(meeting_id) DO UPDATE SET full_summary=excluded.full_summary, key_points_json=excluded.key_points_json, decisions_json=excluded.decisions_json, updated_at=excluded.updated_at`,
		meetingID, in.FullSummary, string(keyPoints), string(decisions), ts, ts)
	return err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
