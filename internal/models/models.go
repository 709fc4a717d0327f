package models

import (
	"strings"
	"time"
)

// Role is a user's position in the org hierarchy
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
)

// Status represents task status
type Status string

const (
	StatusNew  Status = "new"
	StatusDone Status = "done"
)

// ReminderKind identifies one of the fixed reminder offsets
type ReminderKind int

const (
	ReminderDayBefore ReminderKind = iota
	ReminderHourBefore
	ReminderOverdue
)

// String returns the reminder kind name used in logs and events
func (k ReminderKind) String() string {
	switch k {
	case ReminderDayBefore:
		return "day_before"
	case ReminderHourBefore:
		return "hour_before"
	case ReminderOverdue:
		return "overdue"
	}
	return "unknown"
}

// ReminderFlags is a bitmask of reminders already delivered for a task
type ReminderFlags int

// Has reports whether the reminder kind is flagged as sent
func (f ReminderFlags) Has(k ReminderKind) bool {
	return f&(1<<uint(k)) != 0
}

// With returns the flags with kind k set
func (f ReminderFlags) With(k ReminderKind) ReminderFlags {
	return f | 1<<uint(k)
}

// User is a registered chat participant
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department,omitempty"`
	SuperiorID int64     `json:"superior_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the name, falling back to the numeric id
func (u *User) DisplayName() string {
	if u == nil {
		return "unknown"
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return formatID(u.ID)
}

// Task is a unit of work assigned by a creator to an assignee
type Task struct {
	ID            int64         `json:"id"`
	CreatorID     int64         `json:"creator_id"`
	AssigneeID    int64         `json:"assignee_id"`
	Text          string        `json:"text"`
	Deadline      time.Time     `json:"deadline"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	DoneAt        *time.Time    `json:"done_at,omitempty"`
	Archived      bool          `json:"archived,omitempty"`
	ArchivedAt    *time.Time    `json:"archived_at,omitempty"`
	RemindersSent ReminderFlags `json:"reminders_sent,omitempty"`
}

// IsOpen reports whether the task still needs work
func (t *Task) IsOpen() bool {
	return t.Status == StatusNew && !t.Archived
}

// IsOverdue reports whether an open task has passed its deadline
func (t *Task) IsOverdue(now time.Time) bool {
	return t.IsOpen() && now.After(t.Deadline)
}

// Involves reports whether the user created or is assigned the task
func (t *Task) Involves(userID int64) bool {
	return t.CreatorID == userID || t.AssigneeID == userID
}
