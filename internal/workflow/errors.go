package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is matched by every guard failure
var ErrForbidden = errors.New("forbidden")

// TransitionError reports a transition that does not exist
type TransitionError struct {
	From   State
	To     State
	TaskID int64
	Reason string
}

func (e *TransitionError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("task #%d: %s -> %s: %s", e.TaskID, e.From, e.To, e.Reason)
	}
	if e.From == "" && e.To == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Reason)
}

// GuardError reports one failed guard
type GuardError struct {
	GuardName string
	Reason    string
	TaskID    int64
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%s: %s", e.GuardName, e.Reason)
}

func (e *GuardError) Unwrap() error { return ErrForbidden }

// ValidationError aggregates guard failures
type ValidationError struct {
	Errors []*GuardError
}

// Add appends a guard failure
func (v *ValidationError) Add(err *GuardError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether any guard failed
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationError) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrForbidden) match any aggregated guard failure
func (v *ValidationError) Is(target error) bool {
	return target == ErrForbidden && v.HasErrors()
}

// Reason returns the first guard message, for user-facing replies
func (v *ValidationError) Reason() string {
	if len(v.Errors) == 0 {
		return ""
	}
	return v.Errors[0].Reason
}
