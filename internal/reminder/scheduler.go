package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
)

// Notifier delivers a reminder for a freshly fetched task
type Notifier interface {
	NotifyReminder(ctx context.Context, t *models.Task, kind models.ReminderKind) error
}

// TaskSource is the part of the store the scheduler reads and flags
type TaskSource interface {
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, opts store.ListOptions) ([]models.Task, error)
	MarkReminderSent(ctx context.Context, id int64, kind models.ReminderKind) error
}

const fireTimeout = 30 * time.Second

// Scheduler holds at most one timer per task and reminder kind
type Scheduler struct {
	tasks    TaskSource
	notifier Notifier
	clock    Clock
	log      *slog.Logger

	mu      sync.Mutex
	timers  map[int64]map[models.ReminderKind]Timer
	stopped bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the real clock
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a scheduler
func New(tasks TaskSource, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:    tasks,
		notifier: notifier,
		clock:    RealClock{},
		log:      slog.Default(),
		timers:   make(map[int64]map[models.ReminderKind]Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "reminder")
	return s
}

// Schedule arms timers for every reminder of t still in the future,
// replacing any timers armed for t earlier. Returns how many were armed.
// The timers capture only the task id; the task is re-read when they fire.
func (s *Scheduler) Schedule(t *models.Task) int {
	now := s.clock.Now()
	plan := Plan(t, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	s.cancelLocked(t.ID)
	if len(plan) == 0 {
		return 0
	}

	armed := make(map[models.ReminderKind]Timer, len(plan))
	for _, r := range plan {
		id, kind := t.ID, r.Kind
		armed[kind] = s.clock.AfterFunc(r.At.Sub(now), func() { s.fire(id, kind) })
	}
	s.timers[t.ID] = armed
	s.log.Debug("reminders armed", "task", t.ID, "count", len(armed))
	return len(armed)
}

// Cancel stops all pending timers for a task
func (s *Scheduler) Cancel(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(taskID)
}

func (s *Scheduler) cancelLocked(taskID int64) {
	for _, tm := range s.timers[taskID] {
		tm.Stop()
	}
	delete(s.timers, taskID)
}

// Pending returns the number of armed timers for a task
func (s *Scheduler) Pending(taskID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[taskID])
}

// Restore re-arms reminders for every open task from its stored deadline.
// Fire times that passed while the process was down are not delivered.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	tasks, err := s.tasks.ListTasks(ctx, store.ListOptions{Status: models.StatusNew})
	if err != nil {
		return 0, fmt.Errorf("list open tasks: %w", err)
	}
	armed := 0
	for i := range tasks {
		armed += s.Schedule(&tasks[i])
	}
	s.log.Info("reminders restored", "tasks", len(tasks), "timers", armed)
	return armed, nil
}

// Stop cancels every timer. Later calls to Schedule do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id := range s.timers {
		s.cancelLocked(id)
	}
}

func (s *Scheduler) fire(taskID int64, kind models.ReminderKind) {
	s.mu.Lock()
	if armed, ok := s.timers[taskID]; ok {
		delete(armed, kind)
		if len(armed) == 0 {
			delete(s.timers, taskID)
		}
	}
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reminder panic", "task", taskID, "kind", kind, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	t, err := s.tasks.GetTask(ctx, taskID)
	if errors.Is(err, store.ErrTaskNotFound) {
		s.log.Debug("reminder skipped, task gone", "task", taskID, "kind", kind)
		return
	}
	if err != nil {
		s.log.Warn("reminder lookup failed", "task", taskID, "kind", kind, "err", err)
		return
	}
	if !t.IsOpen() || t.RemindersSent.Has(kind) {
		s.log.Debug("reminder skipped", "task", taskID, "kind", kind, "status", t.Status, "archived", t.Archived)
		return
	}

	if err := s.notifier.NotifyReminder(ctx, t, kind); err != nil {
		s.log.Warn("reminder delivery failed", "task", taskID, "kind", kind, "err", err)
		return
	}
	if err := s.tasks.MarkReminderSent(ctx, taskID, kind); err != nil {
		s.log.Warn("mark reminder sent failed", "task", taskID, "kind", kind, "err", err)
	}
}
