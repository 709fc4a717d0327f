package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: 1, AssigneeID: 2, Status: models.StatusNew, Deadline: now.Add(time.Hour)},
		{ID: 2, AssigneeID: 2, Status: models.StatusNew, Deadline: now.Add(-time.Hour)},
		{ID: 3, AssigneeID: 3, Status: models.StatusNew, Deadline: now.Add(48 * time.Hour)},
		{ID: 4, AssigneeID: 3, Status: models.StatusDone, Deadline: now.Add(-time.Hour)},
		{ID: 5, AssigneeID: 2, Status: models.StatusNew, Deadline: now.Add(-40 * 24 * time.Hour), Archived: true},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTasks(), now)

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"Total", s.Total, 5},
		{"Open", s.Open, 3},
		{"Overdue", s.Overdue, 1},
		{"Done", s.Done, 1},
		{"Archived", s.Archived, 1},
		{"Open[2]", s.OpenByAssignee[2], 2},
		{"Open[3]", s.OpenByAssignee[3], 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, now)
	if s.Total != 0 || len(s.OpenByAssignee) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if !strings.Contains(s.Markdown(nil), "| Total | 0 |") {
		t.Error("markdown missing total row")
	}
}

func TestByAssigneeOrder(t *testing.T) {
	s := Summarize(sampleTasks(), now)
	rows := s.ByAssignee(map[int64]string{2: "Eve"})

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "Eve" || rows[0].Open != 2 {
		t.Errorf("rows[0] = %+v, want Eve with 2", rows[0])
	}
	if rows[1].Name != "3" {
		t.Errorf("rows[1].Name = %q, want id fallback 3", rows[1].Name)
	}
}

func TestText(t *testing.T) {
	text := Summarize(sampleTasks(), now).Text(map[int64]string{2: "Eve", 3: "Oleg"})
	for _, want := range []string{"Tasks: 5", "Open: 3 (overdue: 1)", "Eve: 2", "Oleg: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}
