// Package store defines the persistence contract shared by the SQL and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/taskbot/internal/models"
)

var (
	// ErrTaskNotFound is returned when a task id does not exist
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound is returned when a user id does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrDeadlineNotFuture is returned when a new task's deadline is not after now
	ErrDeadlineNotFuture = errors.New("deadline must be in the future")
)

// Scope selects which participant field ListFor matches on
type Scope int

const (
	// ScopeOwn matches tasks the user created or is assigned
	ScopeOwn Scope = iota
	// ScopeAssigned matches tasks assigned to the user
	ScopeAssigned
	// ScopeCreated matches tasks created by the user
	ScopeCreated
)

// ListOptions filters task listings
type ListOptions struct {
	Status          models.Status // empty = any
	IncludeArchived bool
}

// Matches reports whether t passes the filter
func (o ListOptions) Matches(t *models.Task) bool {
	if o.Status != "" && t.Status != o.Status {
		return false
	}
	if t.Archived && !o.IncludeArchived {
		return false
	}
	return true
}

// Users persists the identity registry
type Users interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Tasks persists task records
type Tasks interface {
	CreateTask(ctx context.Context, t *models.Task) (int64, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	MarkDone(ctx context.Context, id int64) (bool, error)
	ListFor(ctx context.Context, userID int64, scope Scope, opts ListOptions) ([]models.Task, error)
	ListTasks(ctx context.Context, opts ListOptions) ([]models.Task, error)
	SweepArchive(ctx context.Context, cutoff time.Time) (int, error)
	MarkReminderSent(ctx context.Context, id int64, kind models.ReminderKind) error
}

// Store is the full persistence backend
type Store interface {
	Users
	Tasks
	Close() error
}

// ValidateNewTask checks a task before insertion. now is the store clock.
func ValidateNewTask(t *models.Task, now time.Time) error {
	if t == nil {
		return fmt.Errorf("nil task")
	}
	if t.CreatorID == 0 || t.AssigneeID == 0 {
		return fmt.Errorf("task needs creator and assignee")
	}
	if t.Text == "" {
		return fmt.Errorf("task text is required")
	}
	if !t.Deadline.After(now) {
		return fmt.Errorf("%w: %s", ErrDeadlineNotFuture, t.Deadline.Format(time.RFC3339))
	}
	return nil
}

// MergeUser applies upsert merge semantics: an incoming empty department,
// zero superior, empty role, or empty name keeps the existing value.
func MergeUser(existing, incoming *models.User) models.User {
	merged := *incoming
	if existing == nil {
		return merged
	}
	if merged.Name == "" {
		merged.Name = existing.Name
	}
	if merged.Role == "" {
		merged.Role = existing.Role
	}
	if merged.Department == "" {
		merged.Department = existing.Department
	}
	if merged.SuperiorID == 0 {
		merged.SuperiorID = existing.SuperiorID
	}
	merged.CreatedAt = existing.CreatedAt
	return merged
}
