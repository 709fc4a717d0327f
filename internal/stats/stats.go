// Package stats summarizes task counts for /stats and `taskbot stats`.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marcus/taskbot/internal/models"
)

// Summary holds task counts
type Summary struct {
	Total    int
	Open     int
	Done     int
	Overdue  int
	Archived int

	// Open tasks per assignee id
	OpenByAssignee map[int64]int
}

// Summarize counts tasks as of now. Archived tasks count only toward
// Total and Archived.
func Summarize(tasks []models.Task, now time.Time) Summary {
	s := Summary{OpenByAssignee: make(map[int64]int)}
	for i := range tasks {
		t := &tasks[i]
		s.Total++
		if t.Archived {
			s.Archived++
			continue
		}
		switch t.Status {
		case models.StatusDone:
			s.Done++
		case models.StatusNew:
			s.Open++
			s.OpenByAssignee[t.AssigneeID]++
			if t.IsOverdue(now) {
				s.Overdue++
			}
		}
	}
	return s
}

// AssigneeCount is one row of the per-assignee breakdown
type AssigneeCount struct {
	UserID int64
	Name   string
	Open   int
}

// ByAssignee returns per-assignee open counts, busiest first. names maps
// user ids to display names; missing names fall back to the id.
func (s Summary) ByAssignee(names map[int64]string) []AssigneeCount {
	out := make([]AssigneeCount, 0, len(s.OpenByAssignee))
	for id, n := range s.OpenByAssignee {
		name := names[id]
		if name == "" {
			name = fmt.Sprintf("%d", id)
		}
		out = append(out, AssigneeCount{UserID: id, Name: name, Open: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Open != out[j].Open {
			return out[i].Open > out[j].Open
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Markdown renders the summary as a markdown document
func (s Summary) Markdown(names map[int64]string) string {
	var b strings.Builder
	b.WriteString("# Task statistics\n\n")
	b.WriteString("| | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Open | %d |\n", s.Open)
	fmt.Fprintf(&b, "| Overdue | %d |\n", s.Overdue)
	fmt.Fprintf(&b, "| Done | %d |\n", s.Done)
	fmt.Fprintf(&b, "| Archived | %d |\n", s.Archived)

	rows := s.ByAssignee(names)
	if len(rows) > 0 {
		b.WriteString("\n## Open by assignee\n\n| Assignee | Open |\n|---|---:|\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "| %s | %d |\n", r.Name, r.Open)
		}
	}
	return b.String()
}

// Text renders the summary as plain chat text
func (s Summary) Text(names map[int64]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks: %d\nOpen: %d (overdue: %d)\nDone: %d\nArchived: %d", s.Total, s.Open, s.Overdue, s.Done, s.Archived)
	rows := s.ByAssignee(names)
	if len(rows) > 0 {
		b.WriteString("\n\nOpen by assignee:")
		for _, r := range rows {
			fmt.Fprintf(&b, "\n  %s: %d", r.Name, r.Open)
		}
	}
	return b.String()
}
