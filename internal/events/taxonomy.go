// Package events defines the canonical bot events published to webhooks.
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType represents the kind of record an event is about.
type EntityType string

// ActionType represents what happened to the entity.
type ActionType string

// Canonical entity types
const (
	EntityTasks EntityType = "tasks"
	EntityUsers EntityType = "users"
)

// Canonical action types
const (
	ActionCreated      ActionType = "created"
	ActionCompleted    ActionType = "completed"
	ActionArchived     ActionType = "archived"
	ActionReminderSent ActionType = "reminder_sent"
	ActionRegistered   ActionType = "registered"
	ActionRoleChanged  ActionType = "role_changed"
)

// Event is one published occurrence
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Action     ActionType     `json:"action"`
	ActorID    int64          `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// New builds an event with a fresh id. Type is "<entity>.<action>" with the
// entity in singular form, e.g. "task.created".
func New(entity EntityType, action ActionType, entityID, actorID int64, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeName(entity, action),
		EntityType: entity,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}
}

// TypeName renders the dotted event type
func TypeName(entity EntityType, action ActionType) string {
	return strings.TrimSuffix(string(entity), "s") + "." + string(action)
}

// validActions lists which actions each entity type can have
var validActions = map[EntityType]map[ActionType]bool{
	EntityTasks: {
		ActionCreated:      true,
		ActionCompleted:    true,
		ActionArchived:     true,
		ActionReminderSent: true,
	},
	EntityUsers: {
		ActionRegistered:  true,
		ActionRoleChanged: true,
	},
}

// IsValidEntityActionCombination checks if an entity type can have a given action type.
func IsValidEntityActionCombination(entity EntityType, action ActionType) bool {
	return validActions[entity][action]
}

// Valid reports whether the event's entity and action belong together
func (e Event) Valid() bool {
	return e.ID != "" && IsValidEntityActionCombination(e.EntityType, e.Action)
}
