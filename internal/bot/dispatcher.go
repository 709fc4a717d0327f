package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/marcus/taskbot/internal/chat"
)

// EventHandler processes one inbound event
type EventHandler interface {
	Handle(ctx context.Context, ev chat.Event)
}

// Dispatcher fans inbound events out to a fixed set of workers. Events of
// one chat always land on the same worker, so a chat's events are handled
// in arrival order while different chats proceed in parallel.
type Dispatcher struct {
	handler EventHandler
	queues  []chan chat.Event
	log     *slog.Logger
}

// NewDispatcher creates a dispatcher with the given worker count and
// per-worker queue size
func NewDispatcher(handler EventHandler, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	queues := make([]chan chat.Event, workers)
	for i := range queues {
		queues[i] = make(chan chat.Event, queueSize)
	}
	return &Dispatcher{
		handler: handler,
		queues:  queues,
		log:     logger.With("component", "dispatcher"),
	}
}

// Workers returns the worker count
func (d *Dispatcher) Workers() int {
	return len(d.queues)
}

func (d *Dispatcher) partition(chatID int64) int {
	n := int64(len(d.queues))
	p := chatID % n
	if p < 0 {
		p += n
	}
	return int(p)
}

// Dispatch enqueues an event, blocking while the chat's worker is full
func (d *Dispatcher) Dispatch(ctx context.Context, ev chat.Event) error {
	select {
	case d.queues[d.partition(ev.ChatID)] <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range d.queues {
		g.Go(func() error {
			d.work(ctx, i, q)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int, q <-chan chat.Event) {
	d.log.Debug("worker started", "worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q:
			if err := d.handle(ctx, ev); err != nil {
				d.log.Error("handler panic", "worker", id, "chat", ev.ChatID, "err", err)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev chat.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v\n%s", r, debug.Stack())
		}
	}()
	d.handler.Handle(ctx, ev)
	return nil
}
