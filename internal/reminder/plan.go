// Package reminder arms one-shot timers for task deadline reminders and
// re-arms them from the store on startup.
package reminder

import (
	"time"

	"github.com/marcus/taskbot/internal/models"
)

// Offsets from the deadline for each reminder kind
var Offsets = map[models.ReminderKind]time.Duration{
	models.ReminderDayBefore:  -24 * time.Hour,
	models.ReminderHourBefore: -time.Hour,
	models.ReminderOverdue:    time.Hour,
}

var kindOrder = []models.ReminderKind{
	models.ReminderDayBefore,
	models.ReminderHourBefore,
	models.ReminderOverdue,
}

// Reminder is one planned delivery
type Reminder struct {
	Kind models.ReminderKind
	At   time.Time
}

// Plan returns the reminders for t that are still ahead of now, earliest
// first. Kinds already flagged as sent are left out.
func Plan(t *models.Task, now time.Time) []Reminder {
	var out []Reminder
	for _, kind := range kindOrder {
		if t.RemindersSent.Has(kind) {
			continue
		}
		at := t.Deadline.Add(Offsets[kind])
		if !at.After(now) {
			continue
		}
		out = append(out, Reminder{Kind: kind, At: at})
	}
	return out
}

// Recipient returns who a reminder kind goes to: the assignee before the
// deadline, the creator once it is overdue.
func Recipient(t *models.Task, kind models.ReminderKind) int64 {
	if kind == models.ReminderOverdue {
		return t.CreatorID
	}
	return t.AssigneeID
}
