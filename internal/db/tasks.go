package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
)

const taskColumns = `id, creator_id, assignee_id, text, deadline, status, created_at, done_at, archived, archived_at, reminders_sent`

// CreateTask inserts a new task and returns its id. The deadline must be
// strictly after the store clock's current time.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) (int64, error) {
	now := db.now()
	if err := store.ValidateNewTask(t, now); err != nil {
		return 0, err
	}

	t.Status = models.StatusNew
	t.CreatedAt = now.UTC()
	t.Deadline = t.Deadline.UTC()
	t.DoneAt = nil
	t.Archived = false
	t.ArchivedAt = nil
	t.RemindersSent = 0

	var id int64
	err := db.queryRow(ctx, `
		INSERT INTO tasks (creator_id, assignee_id, text, deadline, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, t.CreatorID, t.AssigneeID, t.Text, formatTime(t.Deadline), string(t.Status), formatTime(t.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	return id, nil
}

// GetTask retrieves a task by id
func (db *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return scanTask(db.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
}

// MarkDone completes a task. Unknown or already-done ids are a no-op and
// return false.
func (db *DB) MarkDone(ctx context.Context, id int64) (bool, error) {
	res, err := db.exec(ctx, `UPDATE tasks SET status = ?, done_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusDone), formatTime(db.now()), id, string(models.StatusNew))
	if err != nil {
		return false, fmt.Errorf("mark done %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFor returns the user's tasks for the given scope
func (db *DB) ListFor(ctx context.Context, userID int64, scope store.Scope, opts store.ListOptions) ([]models.Task, error) {
	var where []string
	var args []any
	switch scope {
	case store.ScopeAssigned:
		where = append(where, "assignee_id = ?")
		args = append(args, userID)
	case store.ScopeCreated:
		where = append(where, "creator_id = ?")
		args = append(args, userID)
	default:
		where = append(where, "(creator_id = ? OR assignee_id = ?)")
		args = append(args, userID, userID)
	}
	return db.listTasks(ctx, where, args, opts)
}

// ListTasks returns every task passing opts
func (db *DB) ListTasks(ctx context.Context, opts store.ListOptions) ([]models.Task, error) {
	return db.listTasks(ctx, nil, nil, opts)
}

func (db *DB) listTasks(ctx context.Context, where []string, args []any, opts store.ListOptions) ([]models.Task, error) {
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if !opts.IncludeArchived {
		where = append(where, "archived = 0")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY deadline, id`

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// SweepArchive archives done tasks completed before cutoff and open tasks
// whose deadline is before cutoff. Returns the number archived.
func (db *DB) SweepArchive(ctx context.Context, cutoff time.Time) (int, error) {
	c := formatTime(cutoff)
	res, err := db.exec(ctx, `
		UPDATE tasks SET archived = 1, archived_at = ?
		WHERE archived = 0 AND (
			(status = ? AND done_at IS NOT NULL AND done_at < ?) OR
			(status = ? AND deadline < ?)
		)
	`, formatTime(db.now()), string(models.StatusDone), c, string(models.StatusNew), c)
	if err != nil {
		return 0, fmt.Errorf("sweep archive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// MarkReminderSent flags one reminder kind as delivered
func (db *DB) MarkReminderSent(ctx context.Context, id int64, kind models.ReminderKind) error {
	bit := int64(models.ReminderFlags(0).With(kind))
	res, err := db.exec(ctx, `UPDATE tasks SET reminders_sent = reminders_sent | ? WHERE id = ?`, bit, id)
	if err != nil {
		return fmt.Errorf("mark reminder %s for task %d: %w", kind, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var status, deadline, createdAt string
	var doneAt, archivedAt sql.NullString
	var archived, reminders int64

	err := row.Scan(&t.ID, &t.CreatorID, &t.AssigneeID, &t.Text, &deadline, &status, &createdAt,
		&doneAt, &archived, &archivedAt, &reminders)
	if err == sql.ErrNoRows {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Status = models.Status(status)
	t.Archived = archived != 0
	t.RemindersSent = models.ReminderFlags(reminders)
	if t.Deadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.DoneAt, err = parseNullTime(doneAt); err != nil {
		return nil, err
	}
	if t.ArchivedAt, err = parseNullTime(archivedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
