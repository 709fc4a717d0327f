package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/models"
)

func TestIsValidTransition(t *testing.T) {
	sm := New()

	tests := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{"new → done", StateNew, StateDone, true},
		{"new → archived", StateNew, StateArchived, true},
		{"done → archived", StateDone, StateArchived, true},

		// Completion is one-way
		{"done → new", StateDone, StateNew, false},
		{"done → done", StateDone, StateDone, false},

		// Archived is terminal
		{"archived → new", StateArchived, StateNew, false},
		{"archived → done", StateArchived, StateDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sm.IsValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestCanComplete(t *testing.T) {
	sm := New()
	task := &models.Task{ID: 7, CreatorID: 1, AssigneeID: 2, Status: models.StatusNew}

	if err := sm.CanComplete(task, 1); err != nil {
		t.Errorf("creator should complete: %v", err)
	}
	if err := sm.CanComplete(task, 2); err != nil {
		t.Errorf("assignee should complete: %v", err)
	}

	err := sm.CanComplete(task, 3)
	if err == nil {
		t.Fatal("outsider completed task")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason() == "" {
		t.Errorf("expected ValidationError with reason, got %T", err)
	}
}

func TestCanCompleteDoneTask(t *testing.T) {
	sm := New()
	task := &models.Task{ID: 7, CreatorID: 1, AssigneeID: 2, Status: models.StatusDone}

	err := sm.CanComplete(task, 2)
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if terr.From != StateDone || terr.To != StateDone {
		t.Errorf("unexpected transition in error: %s -> %s", terr.From, terr.To)
	}
}

func TestShouldArchive(t *testing.T) {
	sm := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)
	oldDone := cutoff.Add(-time.Hour)
	recentDone := cutoff.Add(time.Hour)

	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{"open past deadline", models.Task{Status: models.StatusNew, Deadline: cutoff.Add(-time.Minute)}, true},
		{"open within window", models.Task{Status: models.StatusNew, Deadline: cutoff.Add(time.Minute)}, false},
		{"done long ago", models.Task{Status: models.StatusDone, Deadline: now, DoneAt: &oldDone}, true},
		{"done recently, old deadline", models.Task{Status: models.StatusDone, Deadline: cutoff.AddDate(0, 0, -5), DoneAt: &recentDone}, false},
		{"done without timestamp", models.Task{Status: models.StatusDone, Deadline: cutoff.AddDate(0, 0, -5)}, false},
		{"already archived", models.Task{Status: models.StatusNew, Deadline: cutoff.AddDate(0, 0, -5), Archived: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sm.ShouldArchive(&tt.task, cutoff); got != tt.want {
				t.Errorf("ShouldArchive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateNilContext(t *testing.T) {
	sm := New()
	if _, err := sm.Validate(nil); err == nil {
		t.Error("expected error for nil context")
	}
	if _, err := sm.Validate(&TransitionContext{From: StateNew, To: StateDone}); err == nil {
		t.Error("expected error for nil task")
	}
}

func TestStateOf(t *testing.T) {
	if s := StateOf(&models.Task{Status: models.StatusNew}); s != StateNew {
		t.Errorf("got %s, want new", s)
	}
	if s := StateOf(&models.Task{Status: models.StatusDone}); s != StateDone {
		t.Errorf("got %s, want done", s)
	}
	if s := StateOf(&models.Task{Status: models.StatusDone, Archived: true}); s != StateArchived {
		t.Errorf("got %s, want archived", s)
	}
}
