package webhook

import (
	"context"
	"log/slog"

	"github.com/marcus/taskbot/internal/events"
)

const (
	defaultQueueSize = 256
	maxBatch         = 50
)

// Publisher accepts events without blocking and delivers them in batches
// from a single goroutine. Events are dropped when the queue is full or a
// POST fails.
type Publisher struct {
	cfg    Config
	source string
	queue  chan events.Event
	log    *slog.Logger
}

// NewPublisher creates a publisher. It delivers nothing until Run is called.
func NewPublisher(cfg Config, source string, logger *slog.Logger) *Publisher {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:    cfg,
		source: source,
		queue:  make(chan events.Event, size),
		log:    logger.With("component", "webhook"),
	}
}

// Publish enqueues e. Never blocks. No-op when the webhook is disabled.
// Events whose entity and action do not belong together are dropped.
func (p *Publisher) Publish(e events.Event) {
	if p == nil || !p.cfg.IsEnabled() {
		return
	}
	if !e.Valid() {
		p.log.Warn("dropping invalid event", "type", e.Type, "id", e.ID)
		return
	}
	select {
	case p.queue <- e:
	default:
		p.log.Warn("webhook queue full, dropping event", "type", e.Type, "id", e.ID)
	}
}

// Run delivers queued events until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) error {
	if !p.cfg.IsEnabled() {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-p.queue:
			batch := []events.Event{e}
		drain:
			for len(batch) < maxBatch {
				select {
				case next := <-p.queue:
					batch = append(batch, next)
				default:
					break drain
				}
			}
			p.deliver(ctx, batch)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, batch []events.Event) {
	payload := BuildPayload(p.source, batch)
	if err := Dispatch(ctx, p.cfg.URL, p.cfg.Secret, payload); err != nil {
		p.log.Warn("webhook delivery failed", "events", len(batch), "err", err)
		return
	}
	p.log.Debug("webhook delivered", "events", len(batch))
}
