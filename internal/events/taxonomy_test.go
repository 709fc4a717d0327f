package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestIsValidEntityActionCombination(t *testing.T) {
	tests := []struct {
		entity EntityType
		action ActionType
		want   bool
	}{
		{EntityTasks, ActionCreated, true},
		{EntityTasks, ActionCompleted, true},
		{EntityTasks, ActionArchived, true},
		{EntityTasks, ActionReminderSent, true},
		{EntityTasks, ActionRegistered, false},
		{EntityUsers, ActionRegistered, true},
		{EntityUsers, ActionRoleChanged, true},
		{EntityUsers, ActionCompleted, false},
		{"boards", ActionCreated, false},
	}

	for _, tt := range tests {
		if got := IsValidEntityActionCombination(tt.entity, tt.action); got != tt.want {
			t.Errorf("IsValidEntityActionCombination(%s, %s) = %v, want %v", tt.entity, tt.action, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	e := New(EntityTasks, ActionCreated, 12, 7, map[string]any{"text": "report"})

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", e.ID, err)
	}
	if e.Type != "task.created" {
		t.Errorf("Type = %q, want task.created", e.Type)
	}
	if e.EntityID != 12 || e.ActorID != 7 {
		t.Errorf("ids = (%d, %d), want (12, 7)", e.EntityID, e.ActorID)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if !e.Valid() {
		t.Error("expected event to be valid")
	}

	other := New(EntityTasks, ActionCreated, 12, 7, nil)
	if other.ID == e.ID {
		t.Error("event ids should be unique")
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		entity EntityType
		action ActionType
		want   string
	}{
		{EntityTasks, ActionReminderSent, "task.reminder_sent"},
		{EntityUsers, ActionRoleChanged, "user.role_changed"},
		{EntityUsers, ActionRegistered, "user.registered"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.entity, tt.action); got != tt.want {
			t.Errorf("TypeName(%s, %s) = %q, want %q", tt.entity, tt.action, got, tt.want)
		}
	}
}

func TestInvalidEvent(t *testing.T) {
	e := New(EntityUsers, ActionArchived, 1, 1, nil)
	if e.Valid() {
		t.Error("users cannot be archived")
	}
	if (Event{EntityType: EntityTasks, Action: ActionCreated}).Valid() {
		t.Error("an event without an id is invalid")
	}
}
