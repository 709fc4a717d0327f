// Package wizard holds per-chat multi-step input state. Each step of each
// flow is its own type, so a step can only exist with the data collected
// by the steps before it.
package wizard

import (
	"sync"
	"time"

	"github.com/marcus/taskbot/internal/models"
)

// Intent names a wizard flow
type Intent string

const (
	IntentRegister   Intent = "register"
	IntentCreateTask Intent = "create_task"
	IntentChangeRole Intent = "change_role"
)

// State is one step of one wizard. The set of implementations is closed.
type State interface {
	Intent() Intent
	Step() string
	sealed()
}

// RegisterRole waits for the user to pick a role
type RegisterRole struct{}

// RegisterName waits for the display name
type RegisterName struct {
	Role models.Role
}

// TaskText waits for the task description
type TaskText struct{}

// TaskAssignee waits for an assignee button press
type TaskAssignee struct {
	Text string
}

// TaskDate waits for the deadline date
type TaskDate struct {
	Text       string
	AssigneeID int64
}

// TaskTime waits for the deadline time of day
type TaskTime struct {
	Text       string
	AssigneeID int64
	Date       time.Time
}

// RoleTarget waits for the director to pick whose role changes
type RoleTarget struct{}

// RoleChoice waits for the new role
type RoleChoice struct {
	TargetID int64
}

// RoleConfirm waits for yes/no
type RoleConfirm struct {
	TargetID int64
	Role     models.Role
}

func (RegisterRole) Intent() Intent { return IntentRegister }
func (RegisterName) Intent() Intent { return IntentRegister }
func (TaskText) Intent() Intent     { return IntentCreateTask }
func (TaskAssignee) Intent() Intent { return IntentCreateTask }
func (TaskDate) Intent() Intent     { return IntentCreateTask }
func (TaskTime) Intent() Intent     { return IntentCreateTask }
func (RoleTarget) Intent() Intent   { return IntentChangeRole }
func (RoleChoice) Intent() Intent   { return IntentChangeRole }
func (RoleConfirm) Intent() Intent  { return IntentChangeRole }

func (RegisterRole) Step() string { return "role" }
func (RegisterName) Step() string { return "name" }
func (TaskText) Step() string     { return "text" }
func (TaskAssignee) Step() string { return "assignee" }
func (TaskDate) Step() string     { return "date" }
func (TaskTime) Step() string     { return "time" }
func (RoleTarget) Step() string   { return "target" }
func (RoleChoice) Step() string   { return "role" }
func (RoleConfirm) Step() string  { return "confirm" }

func (RegisterRole) sealed() {}
func (RegisterName) sealed() {}
func (TaskText) sealed()     {}
func (TaskAssignee) sealed() {}
func (TaskDate) sealed()     {}
func (TaskTime) sealed()     {}
func (RoleTarget) sealed()   {}
func (RoleChoice) sealed()   {}
func (RoleConfirm) sealed()  {}

// Key identifies one user's session in one chat. In a group chat every
// member has their own wizard.
type Key struct {
	ChatID int64
	UserID int64
}

// Sessions maps session keys to their active wizard step. Keys without an
// entry are idle. Half-finished wizards never expire.
type Sessions struct {
	mu     sync.Mutex
	states map[Key]State
}

// NewSessions creates an empty session table
func NewSessions() *Sessions {
	return &Sessions{states: make(map[Key]State)}
}

// Get returns the session's active step, if any
func (s *Sessions) Get(k Key) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[k]
	return st, ok
}

// Set replaces the session's active step. A nil state clears it.
func (s *Sessions) Set(k Key, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == nil {
		delete(s.states, k)
		return
	}
	s.states[k] = st
}

// Clear drops the session's wizard. Returns whether one was active.
func (s *Sessions) Clear(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[k]
	delete(s.states, k)
	return ok
}
