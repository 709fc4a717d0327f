// Package bot turns chat events into registry, store and scheduler calls.
// Each user has at most one active wizard per chat; while it is active every
// text message and wizard button press from that user goes to the wizard's
// current step. Other members of a group chat are unaffected.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/marcus/taskbot/internal/chat"
	"github.com/marcus/taskbot/internal/events"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/registry"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/wizard"
	"github.com/marcus/taskbot/internal/workflow"
)

// Scheduler arms and drops reminder timers
type Scheduler interface {
	Schedule(t *models.Task) int
	Cancel(taskID int64)
}

// Publisher receives domain events
type Publisher interface {
	Publish(e events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

type nopScheduler struct{}

func (nopScheduler) Schedule(*models.Task) int { return 0 }
func (nopScheduler) Cancel(int64)              {}

// Deps are the collaborators of a Handler. Registry, Tasks and Sender are
// required.
type Deps struct {
	Registry  *registry.Registry
	Tasks     store.Tasks
	Sender    chat.Sender
	Scheduler Scheduler
	Publisher Publisher
	Location  *time.Location
	Now       func() time.Time
	Logger    *slog.Logger
}

// Handler processes chat events
type Handler struct {
	reg      *registry.Registry
	tasks    store.Tasks
	sender   chat.Sender
	sched    Scheduler
	pub      Publisher
	sessions *wizard.Sessions
	flow     *workflow.StateMachine
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewHandler creates a handler
func NewHandler(d Deps) *Handler {
	h := &Handler{
		reg:      d.Registry,
		tasks:    d.Tasks,
		sender:   d.Sender,
		sched:    d.Scheduler,
		pub:      d.Publisher,
		sessions: wizard.NewSessions(),
		flow:     workflow.New(),
		loc:      d.Location,
		now:      d.Now,
		log:      d.Logger,
	}
	if h.sched == nil {
		h.sched = nopScheduler{}
	}
	if h.pub == nil {
		h.pub = nopPublisher{}
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.log = h.log.With("component", "bot")
	return h
}

// SetScheduler wires the reminder scheduler after construction, since the
// scheduler delivers through the handler.
func (h *Handler) SetScheduler(s Scheduler) {
	h.sched = s
}

// Sessions exposes the wizard table
func (h *Handler) Sessions() *wizard.Sessions {
	return h.sessions
}

// Handle processes one inbound event. Errors are reported to the chat and
// logged; nothing is returned to the caller.
func (h *Handler) Handle(ctx context.Context, ev chat.Event) {
	if ev.IsCallback() {
		h.answerCallback(ctx, ev.CallbackID)
	}

	text := strings.TrimSpace(ev.Text)
	if (!ev.IsCallback() && commandOf(text) == cmdCancel) || ev.CallbackData == cbCancel {
		h.cancel(ctx, ev)
		return
	}

	if ev.IsCallback() && strings.HasPrefix(ev.CallbackData, cbDone) {
		h.handleDoneCallback(ctx, ev)
		return
	}

	if st, ok := h.sessions.Get(keyOf(ev)); ok {
		h.step(ctx, ev, st)
		return
	}

	if ev.IsCallback() {
		h.reply(ctx, ev.ChatID, "This button is no longer active.")
		return
	}

	h.route(ctx, ev, text)
}

// keyOf returns the wizard session an event belongs to
func keyOf(ev chat.Event) wizard.Key {
	return wizard.Key{ChatID: ev.ChatID, UserID: ev.UserID}
}

func (h *Handler) cancel(ctx context.Context, ev chat.Event) {
	if h.sessions.Clear(keyOf(ev)) {
		h.log.Debug("wizard cancelled", "chat", ev.ChatID)
		h.sendKeyboard(ctx, ev.ChatID, ev.UserID, "Cancelled.")
		return
	}
	h.reply(ctx, ev.ChatID, "Nothing to cancel.")
}

// user loads the sender's registration. Unregistered users are told to
// register and nil is returned.
func (h *Handler) user(ctx context.Context, ev chat.Event) *models.User {
	u, err := h.reg.Get(ctx, ev.UserID)
	if errors.Is(err, registry.ErrNotRegistered) {
		h.reply(ctx, ev.ChatID, "Please register first: /start")
		return nil
	}
	if err != nil {
		h.internalError(ctx, ev.ChatID, "load user", err)
		return nil
	}
	return u
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.send(ctx, chat.Message{ChatID: chatID, Text: text})
}

// send delivers a message. Delivery failures are logged and swallowed:
// whatever state change triggered the message stays committed.
func (h *Handler) send(ctx context.Context, msg chat.Message) bool {
	if err := h.sender.Send(ctx, msg); err != nil {
		h.log.Warn("send failed", "chat", msg.ChatID, "err", err)
		return false
	}
	return true
}

func (h *Handler) sendKeyboard(ctx context.Context, chatID, userID int64, text string) {
	role := models.RoleEmployee
	if u, err := h.reg.Get(ctx, userID); err == nil {
		role = u.Role
	}
	h.send(ctx, chat.Message{ChatID: chatID, Text: text, Keyboard: keyboardFor(role)})
}

func (h *Handler) answerCallback(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if a, ok := h.sender.(chat.CallbackAnswerer); ok {
		if err := a.AnswerCallback(ctx, id, ""); err != nil {
			h.log.Debug("answer callback failed", "err", err)
		}
	}
}

func (h *Handler) internalError(ctx context.Context, chatID int64, op string, err error) {
	h.log.Error(op, "chat", chatID, "err", err)
	h.reply(ctx, chatID, "Something went wrong. Please try again later.")
}

func (h *Handler) publish(entity events.EntityType, action events.ActionType, entityID, actorID int64, data map[string]any) {
	h.pub.Publish(events.New(entity, action, entityID, actorID, data))
}

func (h *Handler) localNow() time.Time {
	return h.now().In(h.loc)
}
