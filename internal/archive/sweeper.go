// Package archive periodically moves old tasks out of the visible set.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/taskbot/internal/events"
)

// Archiver is the store operation the sweeper drives
type Archiver interface {
	SweepArchive(ctx context.Context, cutoff time.Time) (int, error)
}

// Publisher receives an event for every sweep that archived something
type Publisher interface {
	Publish(e events.Event)
}

// Sweeper archives done tasks whose completion, and open tasks whose
// deadline, is older than the retention window.
type Sweeper struct {
	store     Archiver
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	publisher Publisher
	log       *slog.Logger
}

// New creates a sweeper. publisher may be nil.
func New(store Archiver, retention, interval time.Duration, publisher Publisher) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		publisher: publisher,
		log:       slog.Default().With("component", "archive"),
	}
}

// SetClock overrides time.Now
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Cutoff returns the instant before which tasks are archived
func (s *Sweeper) Cutoff() time.Time {
	return s.now().Add(-s.retention)
}

// SweepOnce runs a single sweep and returns the number of tasks archived
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.Cutoff()
	n, err := s.store.SweepArchive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep archive: %w", err)
	}
	if n > 0 {
		s.log.Info("archived tasks", "count", n, "cutoff", cutoff.Format(time.RFC3339))
		if s.publisher != nil {
			s.publisher.Publish(events.New(events.EntityTasks, events.ActionArchived, 0, 0, map[string]any{
				"count":  n,
				"cutoff": cutoff.UTC().Format(time.RFC3339),
			}))
		}
	}
	return n, nil
}

// Run sweeps once immediately and then every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("archive sweep panic", "panic", r)
		}
	}()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Error("archive sweep", "err", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("archive sweep", "err", err)
			}
		}
	}
}
