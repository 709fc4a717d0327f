// Package memstore is the in-memory store backend. Nothing survives a
// restart; it is meant for tests and for explicitly configured throwaway runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/workflow"
)

// Store keeps users and tasks in maps guarded by a mutex
type Store struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	tasks  map[int64]models.Task
	nextID int64
	now    func() time.Time
	flow   *workflow.StateMachine
}

var _ store.Store = (*Store)(nil)

// New creates an empty store using time.Now as its clock
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store with an injected clock
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		users:  make(map[int64]models.User),
		tasks:  make(map[int64]models.Task),
		nextID: 1,
		now:    now,
		flow:   workflow.New(),
	}
}

// Close is a no-op
func (s *Store) Close() error { return nil }

func (s *Store) UpsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *models.User
	if cur, ok := s.users[u.ID]; ok {
		existing = &cur
	}
	merged := store.MergeUser(existing, u)
	now := s.now().UTC()
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now
	s.users[u.ID] = merged
	*u = merged
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

// ListUsers returns users in registration order
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Store) CreateTask(_ context.Context, t *models.Task) (int64, error) {
	now := s.now()
	if err := store.ValidateNewTask(t, now); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.nextID
	s.nextID++
	t.Status = models.StatusNew
	t.CreatedAt = now.UTC()
	t.Deadline = t.Deadline.UTC()
	t.DoneAt = nil
	t.Archived = false
	t.ArchivedAt = nil
	t.RemindersSent = 0
	s.tasks[t.ID] = *t
	return t.ID, nil
}

func (s *Store) GetTask(_ context.Context, id int64) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

func (s *Store) MarkDone(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status == models.StatusDone {
		return false, nil
	}
	at := s.now().UTC()
	t.Status = models.StatusDone
	t.DoneAt = &at
	s.tasks[id] = t
	return true, nil
}

func (s *Store) ListFor(_ context.Context, userID int64, scope store.Scope, opts store.ListOptions) ([]models.Task, error) {
	return s.collect(func(t *models.Task) bool {
		switch scope {
		case store.ScopeAssigned:
			if t.AssigneeID != userID {
				return false
			}
		case store.ScopeCreated:
			if t.CreatorID != userID {
				return false
			}
		default:
			if !t.Involves(userID) {
				return false
			}
		}
		return opts.Matches(t)
	}), nil
}

func (s *Store) ListTasks(_ context.Context, opts store.ListOptions) ([]models.Task, error) {
	return s.collect(opts.Matches), nil
}

// collect returns matching tasks ordered by deadline then id
func (s *Store) collect(match func(*models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if match(&t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].ID < out[j].ID
		}
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out
}

func (s *Store) SweepArchive(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now().UTC()
	n := 0
	for id, t := range s.tasks {
		if !s.flow.ShouldArchive(&t, cutoff) {
			continue
		}
		t.Archived = true
		t.ArchivedAt = &at
		s.tasks[id] = t
		n++
	}
	return n, nil
}

func (s *Store) MarkReminderSent(_ context.Context, id int64, kind models.ReminderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.RemindersSent = t.RemindersSent.With(kind)
	s.tasks[id] = t
	return nil
}
