package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	MeetingID int64
	Status    TaskStatus
	Limit     int
}

// NewTask holds the fields of a manually created task.
type NewTask struct {
	Title       string
	Description *string
	Priority    Priority
	AssigneeID  *int64
	DueDate     *time.Time
}

// TaskUpdate carries optional edits; nil leaves a field unchanged.
// ClearAssignee and ClearDueDate unset the respective field.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Priority      *Priority
	Status        *TaskStatus
	AssigneeID    *int64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// ErrInvalid marks a request rejected by validation.
var ErrInvalid = errors.New("invalid")

const taskSelect = `SELECT t.id, t.meeting_id, t.assignee_id, p.name, t.title, t.description, t.priority, t.status, t.due_date, t.source, t.created_at, t.updated_at
	FROM tasks t LEFT JOIN participants p ON p.id = t.assignee_id`

// ListTasks returns tasks with assignee names, oldest first.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	var where []string
	var args []any
	if f.MeetingID != 0 {
		where = append(where, "t.meeting_id=?")
		args = append(args, f.MeetingID)
	}
	if f.Status != "" {
		where = append(where, "t.status=?")
		args = append(args, string(f.Status))
	}
	query := taskSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.created_at ASC, t.id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id=?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task", id)
	}
	return t, err
}

// CreateTask inserts a manual task for meetingID.
func (s *Store) CreateTask(ctx context.Context, meetingID int64, in NewTask, ts time.Time) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("task title required: %w", ErrInvalid)
	}
	if _, err := s.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, meetingID, in.AssigneeID); err != nil {
		return nil, err
	}
	priority := in.Priority
	if !priority.Valid() {
		priority = PriorityMedium
	}
	var due any
	if in.DueDate != nil {
		due = *in.DueDate
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(meeting_id, assignee_id, title, description, priority, status, due_date, source, created_at, updated_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		meetingID, nullableInt64(in.AssigneeID), title, nullableString(in.Description), string(priority), string(TaskPending), due, string(TaskManual), ts, ts)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTask applies upd to task id.
func (s *Store) UpdateTask(ctx context.Context, id int64, upd TaskUpdate, ts time.Time) (*Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("task title required: %w", ErrInvalid)
		}
		t.Title = title
	}
	if upd.Description != nil {
		t.Description = upd.Description
	}
	if upd.Priority != nil {
		if !upd.Priority.Valid() {
			return nil, fmt.Errorf("priority %q: %w", *upd.Priority, ErrInvalid)
		}
		t.Priority = *upd.Priority
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("status %q: %w", *upd.Status, ErrInvalid)
		}
		t.Status = *upd.Status
	}
	if upd.ClearAssignee {
		t.AssigneeID = nil
	} else if upd.AssigneeID != nil {
		if err := s.checkAssignee(ctx, t.MeetingID, upd.AssigneeID); err != nil {
			return nil, err
		}
		t.AssigneeID = upd.AssigneeID
	}
	if upd.ClearDueDate {
		t.DueDate = nil
	} else if upd.DueDate != nil {
		t.DueDate = upd.DueDate
	}
	var due any
	if t.DueDate != nil {
		due = *t.DueDate
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, priority=?, status=?, assignee_id=?, due_date=?, updated_at=? WHERE id=?`,
		t.Title, nullableString(t.Description), string(t.Priority), string(t.Status), nullableInt64(t.AssigneeID), due, ts, id); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

func (s *Store) checkAssignee(ctx context.Context, meetingID int64, assignee *int64) error {
	if assignee == nil {
		return nil
	}
	if _, err := s.GetParticipant(ctx, meetingID, *assignee); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("assignee %d is not a participant of meeting %d: %w", *assignee, meetingID, ErrInvalid)
		}
		return err
	}
	return nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var assignee sql.NullInt64
	var name, desc sql.NullString
	var due sql.NullTime
	var priority, status, source string
	if err := row.Scan(&t.ID, &t.MeetingID, &assignee, &name, &t.Title, &desc, &priority, &status, &due, &source, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = Priority(priority)
	t.Status = TaskStatus(status)
	t.Source = TaskSource(source)
	if assignee.Valid {
		t.AssigneeID = &assignee.Int64
	}
	if name.Valid {
		t.AssigneeName = &name.String
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	return &t, nil
}
