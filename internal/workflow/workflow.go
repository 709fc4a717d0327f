// Package workflow defines the task lifecycle: which status changes are
// allowed and the guards that must pass before they happen.
package workflow

import (
	"time"

	"github.com/marcus/taskbot/internal/models"
)

// State is a lifecycle state. It extends models.Status with the archived
// flag so the sweep can be expressed as a transition.
type State string

const (
	StateNew      State = "new"
	StateDone     State = "done"
	StateArchived State = "archived"
)

// StateOf returns the lifecycle state of a task
func StateOf(t *models.Task) State {
	if t.Archived {
		return StateArchived
	}
	if t.Status == models.StatusDone {
		return StateDone
	}
	return StateNew
}

// GuardResult represents the outcome of a guard check
type GuardResult struct {
	Passed  bool
	Message string
	Guard   string
}

// Guard checks whether a transition should be allowed
type Guard interface {
	Name() string
	Check(ctx *TransitionContext) GuardResult
}

// TransitionContext provides context for a lifecycle transition
type TransitionContext struct {
	Task    *models.Task
	From    State
	To      State
	ActorID int64     // user requesting the change; 0 for system sweeps
	Now     time.Time // reference time for retention guards
	Cutoff  time.Time // archive retention cutoff
}

// Transition defines a valid lifecycle transition with its guards
type Transition struct {
	From   State
	To     State
	Guards []Guard
}

// StateMachine manages task lifecycle transitions
type StateMachine struct {
	transitions map[State]map[State]*Transition
}

// New creates a StateMachine with the standard lifecycle registered
func New() *StateMachine {
	sm := &StateMachine{transitions: make(map[State]map[State]*Transition)}
	for _, t := range AllTransitions() {
		sm.addTransition(t)
	}
	return sm
}

// AllTransitions returns the task lifecycle
func AllTransitions() []*Transition {
	return []*Transition{
		{From: StateNew, To: StateDone, Guards: []Guard{ParticipantGuard{}}},
		{From: StateNew, To: StateArchived, Guards: []Guard{RetentionGuard{}}},
		{From: StateDone, To: StateArchived, Guards: []Guard{RetentionGuard{}}},
	}
}

func (sm *StateMachine) addTransition(t *Transition) {
	if sm.transitions[t.From] == nil {
		sm.transitions[t.From] = make(map[State]*Transition)
	}
	sm.transitions[t.From][t.To] = t
}

// IsValidTransition checks if a transition exists in the state machine
func (sm *StateMachine) IsValidTransition(from, to State) bool {
	return sm.GetTransition(from, to) != nil
}

// GetTransition returns the transition definition if it exists
func (sm *StateMachine) GetTransition(from, to State) *Transition {
	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return nil
}

// Validate checks the transition path and runs every guard. Failing guards
// are collected into a ValidationError.
func (sm *StateMachine) Validate(ctx *TransitionContext) ([]GuardResult, error) {
	if ctx == nil {
		return nil, &TransitionError{Reason: "nil context"}
	}
	if ctx.Task == nil {
		return nil, &TransitionError{From: ctx.From, To: ctx.To, Reason: "nil task in context"}
	}

	transition := sm.GetTransition(ctx.From, ctx.To)
	if transition == nil {
		return nil, &TransitionError{
			From:   ctx.From,
			To:     ctx.To,
			TaskID: ctx.Task.ID,
			Reason: "transition not allowed",
		}
	}

	var results []GuardResult
	var validationErr ValidationError
	for _, guard := range transition.Guards {
		result := guard.Check(ctx)
		result.Guard = guard.Name()
		results = append(results, result)
		if !result.Passed {
			validationErr.Add(&GuardError{
				GuardName: guard.Name(),
				Reason:    result.Message,
				TaskID:    ctx.Task.ID,
			})
		}
	}

	if validationErr.HasErrors() {
		return results, &validationErr
	}
	return results, nil
}

// CanTransition checks if a transition can be performed (convenience method)
func (sm *StateMachine) CanTransition(ctx *TransitionContext) bool {
	_, err := sm.Validate(ctx)
	return err == nil
}

// CanComplete reports whether actorID may mark t done
func (sm *StateMachine) CanComplete(t *models.Task, actorID int64) error {
	_, err := sm.Validate(&TransitionContext{
		Task:    t,
		From:    StateOf(t),
		To:      StateDone,
		ActorID: actorID,
	})
	return err
}

// ShouldArchive reports whether the sweep may archive t at cutoff
func (sm *StateMachine) ShouldArchive(t *models.Task, cutoff time.Time) bool {
	return sm.CanTransition(&TransitionContext{
		Task:   t,
		From:   StateOf(t),
		To:     StateArchived,
		Cutoff: cutoff,
	})
}
