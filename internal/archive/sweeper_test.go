package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/events"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/store/memstore"
	"github.com/marcus/taskbot/internal/store/storetest"
)

type capture struct {
	mu  sync.Mutex
	evs []events.Event
}

func (c *capture) Publish(e events.Event) {
	c.mu.Lock()
	c.evs = append(c.evs, e)
	c.mu.Unlock()
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	clock := storetest.NewClock(storetest.Epoch)
	st := memstore.NewWithClock(clock.Now)

	doneTask := &models.Task{CreatorID: 1, AssigneeID: 1, Text: "done early", Deadline: clock.Now().Add(time.Hour)}
	st.CreateTask(ctx, doneTask)
	st.MarkDone(ctx, doneTask.ID)

	overdue := &models.Task{CreatorID: 1, AssigneeID: 2, Text: "never finished", Deadline: clock.Now().Add(2 * time.Hour)}
	st.CreateTask(ctx, overdue)

	fresh := &models.Task{CreatorID: 1, AssigneeID: 2, Text: "due later", Deadline: clock.Now().Add(60 * 24 * time.Hour)}
	st.CreateTask(ctx, fresh)

	pub := &capture{}
	s := New(st, 30*24*time.Hour, time.Hour, pub)
	s.SetClock(clock.Now)

	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 0 {
		t.Errorf("first sweep archived %d, want 0", n)
	}

	clock.Advance(31 * 24 * time.Hour)
	n, err = s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 2 {
		t.Errorf("archived %d, want 2", n)
	}

	open, _ := st.ListTasks(ctx, store.ListOptions{})
	if len(open) != 1 || open[0].ID != fresh.ID {
		t.Errorf("visible tasks = %+v, want only %d", open, fresh.ID)
	}

	if len(pub.evs) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.evs))
	}
	if pub.evs[0].Type != "task.archived" {
		t.Errorf("event type = %q, want task.archived", pub.evs[0].Type)
	}
	if pub.evs[0].Data["count"] != 2 {
		t.Errorf("event count = %v, want 2", pub.evs[0].Data["count"])
	}
}

type failingArchiver struct{}

func (failingArchiver) SweepArchive(context.Context, time.Time) (int, error) {
	return 0, errors.New("database is locked")
}

func TestSweepOnceError(t *testing.T) {
	s := New(failingArchiver{}, time.Hour, time.Hour, nil)
	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type countingArchiver struct {
	mu    sync.Mutex
	calls int
}

func (c *countingArchiver) SweepArchive(context.Context, time.Time) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return 0, nil
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	a := &countingArchiver{}
	s := New(a, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls < 2 {
		t.Errorf("sweeps = %d, want at least 2", a.calls)
	}
}

func TestCutoff(t *testing.T) {
	s := New(failingArchiver{}, 30*24*time.Hour, time.Hour, nil)
	s.SetClock(func() time.Time { return storetest.Epoch })
	want := storetest.Epoch.AddDate(0, 0, -30)
	if got := s.Cutoff(); !got.Equal(want) {
		t.Errorf("Cutoff = %v, want %v", got, want)
	}
}
