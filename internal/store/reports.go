package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// InsertReport appends a report; reports are never updated.
func (s *Store) InsertReport(ctx context.Context, meetingID *int64, reportType ReportType, content json.RawMessage, ts time.Time) (*ProgressReport, error) {
	if len(content) == 0 {
		content = json.RawMessage("{}")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO progress_reports(meeting_id, report_type, content_json, generated_at) VALUES(?,?,?,?)`,
		nullableInt64(meetingID), string(reportType), string(content), ts)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetReport(ctx, id)
}

func (s *Store) GetReport(ctx context.Context, id int64) (*ProgressReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, meeting_id, report_type, content_json, generated_at FROM progress_reports WHERE id=?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("report", id)
	}
	return r, err
}

// ListReports returns reports newest first, optionally for one meeting.
func (s *Store) ListReports(ctx context.Context, meetingID int64, limit int) ([]ProgressReport, error) {
	query := `SELECT id, meeting_id, report_type, content_json, generated_at FROM progress_reports`
	args := []any{}
	if meetingID != 0 {
		query += ` WHERE meeting_id=?`
		args = append(args, meetingID)
	}
	query += ` ORDER BY generated_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProgressReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReport(row rowScanner) (*ProgressReport, error) {
	var r ProgressReport
	var meeting sql.NullInt64
	var reportType, content string
	if err := row.Scan(&r.ID, &meeting, &reportType, &content, &r.GeneratedAt); err != nil {
		return nil, err
	}
	if meeting.Valid {
		r.MeetingID = &meeting.Int64
	}
	r.ReportType = ReportType(reportType)
	r.Content = json.RawMessage(content)
	return &r, nil
}
