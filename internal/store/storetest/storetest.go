// Package storetest is a contract suite run against every store backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
)

// Clock is a settable clock for deterministic store tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory opens a fresh, empty store using the given clock
type Factory func(t *testing.T, now func() time.Time) store.Store

// Epoch is the reference time every suite starts from
var Epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Run executes the full contract suite
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store, clock *Clock)
	}{
		{"CreateRejectsPastDeadline", testCreateRejectsPastDeadline},
		{"CreateAssignsMonotonicIDs", testCreateAssignsMonotonicIDs},
		{"DeadlineRoundTrip", testDeadlineRoundTrip},
		{"GetTaskNotFound", testGetTaskNotFound},
		{"MarkDoneIdempotent", testMarkDoneIdempotent},
		{"ListForScopes", testListForScopes},
		{"SweepArchive", testSweepArchive},
		{"MarkReminderSent", testMarkReminderSent},
		{"UpsertUserMerge", testUpsertUserMerge},
		{"GetUserNotFound", testGetUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewClock(Epoch)
			s := open(t, clock.Now)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s, clock)
		})
	}
}

func newTask(creator, assignee int64, text string, deadline time.Time) *models.Task {
	return &models.Task{CreatorID: creator, AssigneeID: assignee, Text: text, Deadline: deadline}
}

func testCreateRejectsPastDeadline(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	now := clock.Now()

	for _, deadline := range []time.Time{now.Add(-time.Hour), now} {
		_, err := s.CreateTask(ctx, newTask(1, 2, "late", deadline))
		if !errors.Is(err, store.ErrDeadlineNotFuture) {
			t.Errorf("deadline %v: got err %v, want ErrDeadlineNotFuture", deadline, err)
		}
	}

	tasks, err := s.ListTasks(ctx, store.ListOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("store changed after rejected create: %d tasks", len(tasks))
	}
}

func testCreateAssignsMonotonicIDs(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	deadline := clock.Now().Add(48 * time.Hour)

	var last int64
	for i := 0; i < 3; i++ {
		task := newTask(1, 2, "report", deadline)
		id, err := s.CreateTask(ctx, task)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if id <= last {
			t.Errorf("id %d not greater than previous %d", id, last)
		}
		if task.ID != id {
			t.Errorf("task.ID = %d, want %d", task.ID, id)
		}
		if task.Status != models.StatusNew {
			t.Errorf("status = %s, want new", task.Status)
		}
		last = id
	}
}

func testDeadlineRoundTrip(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	loc := time.FixedZone("MSK", 3*60*60)
	deadline := time.Date(2026, 3, 4, 10, 0, 0, 0, loc)

	id, err := s.CreateTask(ctx, newTask(1, 2, "finish report", deadline))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	got, err := s.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !got.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", got.Deadline, deadline)
	}
	if !got.CreatedAt.Equal(clock.Now()) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, clock.Now())
	}
	if !got.Deadline.After(got.CreatedAt) {
		t.Error("stored deadline not after creation time")
	}
	if got.Text != "finish report" || got.CreatorID != 1 || got.AssigneeID != 2 {
		t.Errorf("unexpected task: %+v", got)
	}
}

func testGetTaskNotFound(t *testing.T, s store.Store, _ *Clock) {
	_, err := s.GetTask(context.Background(), 999)
	if !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("got %v, want ErrTaskNotFound", err)
	}
}

func testMarkDoneIdempotent(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	id, err := s.CreateTask(ctx, newTask(1, 2, "ship", clock.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	clock.Advance(10 * time.Minute)
	changed, err := s.MarkDone(ctx, id)
	if err != nil || !changed {
		t.Fatalf("first MarkDone = %v, %v; want true, nil", changed, err)
	}
	firstDone, _ := s.GetTask(ctx, id)

	clock.Advance(10 * time.Minute)
	changed, err = s.MarkDone(ctx, id)
	if err != nil || changed {
		t.Errorf("second MarkDone = %v, %v; want false, nil", changed, err)
	}
	again, _ := s.GetTask(ctx, id)
	if again.Status != models.StatusDone {
		t.Errorf("status = %s, want done", again.Status)
	}
	if again.DoneAt == nil || firstDone.DoneAt == nil || !again.DoneAt.Equal(*firstDone.DoneAt) {
		t.Errorf("done_at changed on repeated completion: %v vs %v", again.DoneAt, firstDone.DoneAt)
	}

	changed, err = s.MarkDone(ctx, 12345)
	if err != nil || changed {
		t.Errorf("MarkDone(unknown) = %v, %v; want false, nil", changed, err)
	}
}

func testListForScopes(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	deadline := clock.Now().Add(24 * time.Hour)

	mine, _ := s.CreateTask(ctx, newTask(10, 10, "self", deadline))
	given, _ := s.CreateTask(ctx, newTask(10, 20, "delegated", deadline.Add(time.Hour)))
	received, _ := s.CreateTask(ctx, newTask(30, 10, "incoming", deadline.Add(2*time.Hour)))
	s.CreateTask(ctx, newTask(30, 20, "unrelated", deadline))

	ids := func(tasks []models.Task) []int64 {
		out := make([]int64, len(tasks))
		for i, task := range tasks {
			out[i] = task.ID
		}
		return out
	}
	check := func(name string, scope store.Scope, want []int64) {
		tasks, err := s.ListFor(ctx, 10, scope, store.ListOptions{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got := ids(tasks)
		if len(got) != len(want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
			return
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: got %v, want %v", name, got, want)
				return
			}
		}
	}

	check("own", store.ScopeOwn, []int64{mine, given, received})
	check("assigned", store.ScopeAssigned, []int64{mine, received})
	check("created", store.ScopeCreated, []int64{mine, given})

	s.MarkDone(ctx, given)
	done, err := s.ListFor(ctx, 10, store.ScopeOwn, store.ListOptions{Status: models.StatusDone})
	if err != nil {
		t.Fatalf("ListFor done: %v", err)
	}
	if len(done) != 1 || done[0].ID != given {
		t.Errorf("done filter: got %v, want [%d]", ids(done), given)
	}
}

func testSweepArchive(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	start := clock.Now()

	overdue, _ := s.CreateTask(ctx, newTask(1, 2, "forgotten", start.Add(time.Hour)))
	completed, _ := s.CreateTask(ctx, newTask(1, 2, "finished", start.Add(40*24*time.Hour)))
	fresh, _ := s.CreateTask(ctx, newTask(1, 2, "upcoming", start.Add(60*24*time.Hour)))
	s.MarkDone(ctx, completed)

	clock.Advance(45 * 24 * time.Hour)
	cutoff := clock.Now().Add(-30 * 24 * time.Hour)

	n, err := s.SweepArchive(ctx, cutoff)
	if err != nil {
		t.Fatalf("SweepArchive: %v", err)
	}
	if n != 2 {
		t.Errorf("archived %d tasks, want 2", n)
	}

	for _, id := range []int64{overdue, completed} {
		task, _ := s.GetTask(ctx, id)
		if !task.Archived || task.ArchivedAt == nil {
			t.Errorf("task %d not archived", id)
		}
	}
	task, _ := s.GetTask(ctx, fresh)
	if task.Archived {
		t.Error("fresh task archived")
	}

	visible, _ := s.ListTasks(ctx, store.ListOptions{})
	if len(visible) != 1 || visible[0].ID != fresh {
		t.Errorf("archived tasks still listed by default: %d tasks", len(visible))
	}

	n, err = s.SweepArchive(ctx, cutoff)
	if err != nil || n != 0 {
		t.Errorf("second sweep = %d, %v; want 0, nil", n, err)
	}
}

func testMarkReminderSent(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	id, _ := s.CreateTask(ctx, newTask(1, 2, "remind me", clock.Now().Add(72*time.Hour)))

	if err := s.MarkReminderSent(ctx, id, models.ReminderDayBefore); err != nil {
		t.Fatalf("MarkReminderSent: %v", err)
	}
	if err := s.MarkReminderSent(ctx, id, models.ReminderOverdue); err != nil {
		t.Fatalf("MarkReminderSent: %v", err)
	}
	task, _ := s.GetTask(ctx, id)
	if !task.RemindersSent.Has(models.ReminderDayBefore) || !task.RemindersSent.Has(models.ReminderOverdue) {
		t.Errorf("flags = %b, want day_before and overdue", task.RemindersSent)
	}
	if task.RemindersSent.Has(models.ReminderHourBefore) {
		t.Error("hour_before flagged without being sent")
	}
}

func testUpsertUserMerge(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	u := &models.User{ID: 42, Name: "Anna", Role: models.RoleManager, Department: "sales", SuperiorID: 1}
	if err := s.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	// Re-registration without department keeps the old one
	if err := s.UpsertUser(ctx, &models.User{ID: 42, Name: "Anna K", Role: models.RoleManager}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	got, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Anna K" {
		t.Errorf("name = %q, want %q", got.Name, "Anna K")
	}
	if got.Department != "sales" {
		t.Errorf("department = %q, want %q", got.Department, "sales")
	}
	if got.SuperiorID != 1 {
		t.Errorf("superior = %d, want 1", got.SuperiorID)
	}

	// Explicit overwrite wins
	s.UpsertUser(ctx, &models.User{ID: 42, Department: "support"})
	got, _ = s.GetUser(ctx, 42)
	if got.Department != "support" || got.Role != models.RoleManager {
		t.Errorf("got %+v, want department support and role kept", got)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers returned %d users, want 1", len(users))
	}
}

func testGetUserNotFound(t *testing.T, s store.Store, _ *Clock) {
	_, err := s.GetUser(context.Background(), 7)
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}
