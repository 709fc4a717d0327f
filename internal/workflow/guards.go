package workflow

import "github.com/marcus/taskbot/internal/models"

// ParticipantGuard allows only the creator or the assignee to act
type ParticipantGuard struct{}

func (ParticipantGuard) Name() string { return "participant" }

func (ParticipantGuard) Check(ctx *TransitionContext) GuardResult {
	if ctx.Task.Involves(ctx.ActorID) {
		return GuardResult{Passed: true}
	}
	return GuardResult{Message: "only the creator or the assignee can complete a task"}
}

// RetentionGuard passes once the task's reference time is older than the
// cutoff: done_at for completed tasks, the deadline for open ones.
type RetentionGuard struct{}

func (RetentionGuard) Name() string { return "retention" }

func (RetentionGuard) Check(ctx *TransitionContext) GuardResult {
	t := ctx.Task
	if ctx.Cutoff.IsZero() {
		return GuardResult{Message: "no retention cutoff"}
	}
	if t.Status == models.StatusDone {
		if t.DoneAt != nil && t.DoneAt.Before(ctx.Cutoff) {
			return GuardResult{Passed: true}
		}
		return GuardResult{Message: "completed within retention window"}
	}
	if t.Deadline.Before(ctx.Cutoff) {
		return GuardResult{Passed: true}
	}
	return GuardResult{Message: "deadline within retention window"}
}
