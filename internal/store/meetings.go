package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// NewMeeting holds the user-supplied fields of a meeting.
type NewMeeting struct {
	Title       string
	Description *string
	Date        *time.Time
	AudioPath   *string
}

const meetingColumns = `id, title, description, meeting_date, audio_file_path, duration_seconds, status, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*Meeting, error) {
	var m Meeting
	var desc, audio, lastErr sql.NullString
	var date sql.NullTime
	var duration sql.NullFloat64
	var status string
	if err := row.Scan(&m.ID, &m.Title, &desc, &date, &audio, &duration, &status, &lastErr, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = MeetingStatus(status)
	if desc.Valid {
		m.Description = &desc.String
	}
	if date.Valid {
		m.Date = &date.Time
	}
	if audio.Valid {
		m.AudioPath = &audio.String
	}
	if duration.Valid {
		m.DurationSeconds = &duration.Float64
	}
	if lastErr.Valid {
		m.LastError = &lastErr.String
	}
	return &m, nil
}

// CreateMeeting inserts a meeting in the uploading state.
func (s *Store) CreateMeeting(ctx context.Context, in NewMeeting, ts time.Time) (*Meeting, error) {
	var date any
	if in.Date != nil {
		date = *in.Date
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO meetings(title, description, meeting_date, audio_file_path, status, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		strings.TrimSpace(in.Title), nullableString(in.Description), date, nullableString(in.AudioPath), string(MeetingUploading), ts, ts)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetMeeting(ctx, id)
}

// GetMeeting loads one meeting or returns ErrNotFound.
func (s *Store) GetMeeting(ctx context.Context, id int64) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id=?`, id)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting", id)
	}
	return m, err
}

// FindMeetingByAudioPath returns the newest meeting for path, or nil.
func (s *Store) FindMeetingByAudioPath(ctx context.Context, path string) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE audio_file_path=? ORDER BY id DESC LIMIT 1`, path)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListMeetings returns meetings newest first. Empty statuses means all.
func (s *Store) ListMeetings(ctx context.Context, limit int, statuses ...MeetingStatus) ([]Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings`
	args := []any{}
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// SetMeetingStatus updates status and last error in a single statement.
func (s *Store) SetMeetingStatus(ctx context.Context, id int64, status MeetingStatus, errMsg *string, ts time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE meetings SET status=?, last_error=?, updated_at=? WHERE id=?`, string(status), nullableString(errMsg), ts, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "meeting", id)
}

// AttachAudio records the audio file to process for a meeting.
func (s *Store) AttachAudio(ctx context.Context, id int64, path string, ts time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE meetings SET audio_file_path=?, updated_at=? WHERE id=?`, path, ts, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "meeting", id)
}

// DeleteMeeting removes a meeting and, by cascade, its artifacts.
func (s *Store) DeleteMeeting(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "meeting", id)
}

// CountMeetings returns the number of meetings per status.
func (s *Store) CountMeetings(ctx context.Context) (map[MeetingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM meetings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[MeetingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[MeetingStatus(status)] = n
	}
	return out, rows.Err()
}

func expectAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
