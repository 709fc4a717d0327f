// Package output provides styled terminal output helpers for the operator
// commands: status lines, task and user formatting, JSON.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/taskbot/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	archiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusNew:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StatusDone: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	roleStyles = map[models.Role]lipgloss.Style{
		models.RoleEmployee: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		models.RoleManager:  lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.RoleDirector: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeDatabaseError = "database_error"
	ErrCodeConfigError   = "config_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// FormatStatus formats a task status with color. Archived tasks are shown
// as archived whatever their status.
func FormatStatus(t *models.Task) string {
	if t.Archived {
		return archiveStyle.Render(fmt.Sprintf("[archived/%s]", t.Status))
	}
	style, ok := statusStyles[t.Status]
	if !ok {
		return fmt.Sprintf("[%s]", t.Status)
	}
	return style.Render(fmt.Sprintf("[%s]", t.Status))
}

// FormatRole formats a role with color
func FormatRole(r models.Role) string {
	style, ok := roleStyles[r]
	if !ok {
		return string(r)
	}
	return style.Render(string(r))
}

// FormatDue describes a deadline relative to now: "in 3h", "2d overdue"
func FormatDue(deadline, now time.Time) string {
	diff := deadline.Sub(now)
	if diff >= 0 {
		return "in " + shortDuration(diff)
	}
	return shortDuration(-diff) + " overdue"
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// FormatTaskShort formats a task on one line. names resolves user ids.
func FormatTaskShort(t *models.Task, names map[int64]string, now time.Time, loc *time.Location) string {
	due := t.Deadline.In(loc).Format("02.01.2006 15:04")
	if t.IsOpen() {
		rel := FormatDue(t.Deadline, now)
		if t.IsOverdue(now) {
			rel = warningStyle.Render(rel)
		} else {
			rel = subtleStyle.Render(rel)
		}
		due += " " + rel
	}
	return fmt.Sprintf("%s %s %s  %s -> %s  due %s",
		titleStyle.Render(fmt.Sprintf("#%d", t.ID)),
		FormatStatus(t),
		t.Text,
		nameOr(names, t.CreatorID),
		nameOr(names, t.AssigneeID),
		due,
	)
}

// FormatTaskLong formats a task with every field
func FormatTaskLong(t *models.Task, names map[int64]string, loc *time.Location) string {
	var sb strings.Builder
	layout := "2006-01-02 15:04 MST"
	fmt.Fprintf(&sb, "%s %s\n", titleStyle.Render(fmt.Sprintf("Task #%d", t.ID)), FormatStatus(t))
	fmt.Fprintf(&sb, "%s\n\n", t.Text)
	fmt.Fprintf(&sb, "Creator:  %s\n", nameOr(names, t.CreatorID))
	fmt.Fprintf(&sb, "Assignee: %s\n", nameOr(names, t.AssigneeID))
	fmt.Fprintf(&sb, "Deadline: %s\n", t.Deadline.In(loc).Format(layout))
	fmt.Fprintf(&sb, "Created:  %s\n", t.CreatedAt.In(loc).Format(layout))
	if t.DoneAt != nil {
		fmt.Fprintf(&sb, "Done:     %s\n", t.DoneAt.In(loc).Format(layout))
	}
	if t.ArchivedAt != nil {
		fmt.Fprintf(&sb, "Archived: %s\n", t.ArchivedAt.In(loc).Format(layout))
	}
	var sent []string
	for _, k := range []models.ReminderKind{models.ReminderDayBefore, models.ReminderHourBefore, models.ReminderOverdue} {
		if t.RemindersSent.Has(k) {
			sent = append(sent, k.String())
		}
	}
	if len(sent) > 0 {
		fmt.Fprintf(&sb, "Reminded: %s\n", strings.Join(sent, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatUser formats a user on one line
func FormatUser(u *models.User, names map[int64]string) string {
	line := fmt.Sprintf("%s %s %s", titleStyle.Render(fmt.Sprintf("%d", u.ID)), u.DisplayName(), FormatRole(u.Role))
	if u.Department != "" {
		line += " " + subtleStyle.Render("dept:"+u.Department)
	}
	if u.SuperiorID != 0 {
		line += " " + subtleStyle.Render("reports to "+nameOr(names, u.SuperiorID))
	}
	return line
}

func nameOr(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("%d", id)
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nOPEN TASKS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
