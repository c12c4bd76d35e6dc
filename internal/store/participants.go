package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ParticipantUpdate carries the user-editable participant fields; nil leaves
// a field unchanged.
type ParticipantUpdate struct {
	Name  *string
	Email *string
}

func (s *Store) ListParticipants(ctx context.Context, meetingID int64) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, meeting_id, name, email, speaker_label, created_at FROM participants WHERE meeting_id=? ORDER BY id ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) GetParticipant(ctx context.Context, meetingID, id int64) (*Participant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, meeting_id, name, email, speaker_label, created_at FROM participants WHERE id=? AND meeting_id=?`, id, meetingID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("participant", id)
	}
	return p, err
}

// UpdateParticipant edits name and email of a participant of meetingID.
func (s *Store) UpdateParticipant(ctx context.Context, meetingID, id int64, upd ParticipantUpdate) (*Participant, error) {
	current, err := s.GetParticipant(ctx, meetingID, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		current.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			current.Email = nil
		} else {
			current.Email = &email
		}
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE participants SET name=?, email=? WHERE id=?`, current.Name, nullableString(current.Email), id); err != nil {
		return nil, err
	}
	return current, nil
}

func scanParticipant(row rowScanner) (*Participant, error) {
	var p Participant
	var email, label sql.NullString
	if err := row.Scan(&p.ID, &p.MeetingID, &p.Name, &email, &label, &p.CreatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		p.Email = &email.String
	}
	if label.Valid {
		p.SpeakerLabel = &label.String
	}
	return &p, nil
}
