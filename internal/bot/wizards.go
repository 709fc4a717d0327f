package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/taskbot/internal/chat"
	"github.com/marcus/taskbot/internal/dateparse"
	"github.com/marcus/taskbot/internal/events"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/registry"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/visibility"
	"github.com/marcus/taskbot/internal/wizard"
)

const (
	maxNameLen     = 64
	maxTaskTextLen = 1000
)

// step dispatches an event to the active wizard step
func (h *Handler) step(ctx context.Context, ev chat.Event, st wizard.State) {
	h.log.Debug("wizard step", "chat", ev.ChatID, "intent", st.Intent(), "step", st.Step())

	switch s := st.(type) {
	case wizard.RegisterRole:
		h.stepRegisterRole(ctx, ev)
	case wizard.RegisterName:
		h.stepRegisterName(ctx, ev, s)
	case wizard.TaskText:
		h.stepTaskText(ctx, ev)
	case wizard.TaskAssignee:
		h.stepTaskAssignee(ctx, ev, s)
	case wizard.TaskDate:
		h.stepTaskDate(ctx, ev, s)
	case wizard.TaskTime:
		h.stepTaskTime(ctx, ev, s)
	case wizard.RoleTarget:
		h.stepRoleTarget(ctx, ev)
	case wizard.RoleChoice:
		h.stepRoleChoice(ctx, ev, s)
	case wizard.RoleConfirm:
		h.stepRoleConfirm(ctx, ev, s)
	default:
		h.sessions.Clear(keyOf(ev))
	}
}

// abort ends the caller's wizard with a refusal
func (h *Handler) abort(ctx context.Context, ev chat.Event, text string) {
	h.sessions.Clear(keyOf(ev))
	h.sendKeyboard(ctx, ev.ChatID, ev.UserID, text)
}

// Registration

func (h *Handler) promptRegisterRole(ctx context.Context, chatID int64) {
	h.send(ctx, chat.Message{
		ChatID: chatID,
		Text:   "Welcome! Choose your role:",
		Buttons: []chat.Button{
			{Label: roleLabel(models.RoleEmployee), Data: cbRole + string(models.RoleEmployee)},
			{Label: roleLabel(models.RoleManager), Data: cbRole + string(models.RoleManager)},
			cancelButton(),
		},
	})
}

func (h *Handler) stepRegisterRole(ctx context.Context, ev chat.Event) {
	var role models.Role
	if strings.HasPrefix(ev.CallbackData, cbRole) {
		role = models.NormalizeRole(strings.TrimPrefix(ev.CallbackData, cbRole))
	} else if !ev.IsCallback() {
		role = models.NormalizeRole(ev.Text)
	}
	if role != models.RoleEmployee && role != models.RoleManager {
		h.promptRegisterRole(ctx, ev.ChatID)
		return
	}
	h.sessions.Set(keyOf(ev), wizard.RegisterName{Role: role})
	h.reply(ctx, ev.ChatID, "Enter your name:")
}

func (h *Handler) stepRegisterName(ctx context.Context, ev chat.Event, s wizard.RegisterName) {
	name := strings.TrimSpace(ev.Text)
	if ev.IsCallback() || name == "" || len([]rune(name)) > maxNameLen {
		h.reply(ctx, ev.ChatID, fmt.Sprintf("Please enter a name of 1 to %d characters:", maxNameLen))
		return
	}

	u, err := h.reg.Register(ctx, ev.UserID, name, s.Role)
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "register", err)
		return
	}
	h.sessions.Clear(keyOf(ev))
	h.log.Info("user registered", "user", u.ID, "role", u.Role)
	h.publish(events.EntityUsers, events.ActionRegistered, u.ID, u.ID, map[string]any{
		"name": u.Name,
		"role": string(u.Role),
	})

	text := fmt.Sprintf("Registered as %s, %s.", u.DisplayName(), roleLabel(u.Role))
	if u.Role != s.Role {
		text += " You are the first user, so you are the director."
	}
	h.send(ctx, chat.Message{ChatID: ev.ChatID, Text: text, Keyboard: keyboardFor(u.Role)})
}

// Task creation

func (h *Handler) stepTaskText(ctx context.Context, ev chat.Event) {
	text := strings.TrimSpace(ev.Text)
	if ev.IsCallback() || text == "" {
		h.reply(ctx, ev.ChatID, "Describe the task:")
		return
	}
	if len([]rune(text)) > maxTaskTextLen {
		h.reply(ctx, ev.ChatID, fmt.Sprintf("Please keep the description to %d characters or fewer:", maxTaskTextLen))
		return
	}
	u := h.user(ctx, ev)
	if u == nil {
		h.sessions.Clear(keyOf(ev))
		return
	}

	if u.Role == models.RoleEmployee {
		h.sessions.Set(keyOf(ev), wizard.TaskDate{Text: text, AssigneeID: u.ID})
		h.promptDate(ctx, ev.ChatID, "")
		return
	}

	users, err := h.reg.List(ctx)
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "list users", err)
		return
	}
	h.sessions.Set(keyOf(ev), wizard.TaskAssignee{Text: text})
	h.promptAssignee(ctx, ev.ChatID, visibility.AssignableTargets(u, users), u.ID)
}

func (h *Handler) promptAssignee(ctx context.Context, chatID int64, targets []models.User, self int64) {
	buttons := make([]chat.Button, 0, len(targets)+1)
	for i := range targets {
		label := targets[i].DisplayName()
		if targets[i].ID == self {
			label += " (me)"
		}
		buttons = append(buttons, chat.Button{Label: label, Data: cbAssign + strconv.FormatInt(targets[i].ID, 10)})
	}
	buttons = append(buttons, cancelButton())
	h.send(ctx, chat.Message{ChatID: chatID, Text: "Who should do it?", Buttons: buttons})
}

func (h *Handler) stepTaskAssignee(ctx context.Context, ev chat.Event, s wizard.TaskAssignee) {
	u := h.user(ctx, ev)
	if u == nil {
		h.sessions.Clear(keyOf(ev))
		return
	}
	id, ok := callbackID(ev.CallbackData, cbAssign)
	if !ok {
		users, err := h.reg.List(ctx)
		if err != nil {
			h.internalError(ctx, ev.ChatID, "list users", err)
			return
		}
		h.promptAssignee(ctx, ev.ChatID, visibility.AssignableTargets(u, users), u.ID)
		return
	}

	target, err := h.reg.Get(ctx, id)
	if errors.Is(err, registry.ErrNotRegistered) {
		h.abort(ctx, ev, "That user is not registered.")
		return
	}
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "get user", err)
		return
	}
	if !visibility.CanAssign(u, target) {
		h.abort(ctx, ev, "You cannot assign tasks to that user.")
		return
	}

	h.sessions.Set(keyOf(ev), wizard.TaskDate{Text: s.Text, AssigneeID: target.ID})
	h.promptDate(ctx, ev.ChatID, "")
}

func (h *Handler) promptDate(ctx context.Context, chatID int64, problem string) {
	text := "Enter the deadline date (DD.MM.YYYY, \"today\", \"tomorrow\", \"+3d\", a weekday):"
	if problem != "" {
		text = problem + "\n" + text
	}
	h.send(ctx, chat.Message{ChatID: chatID, Text: text, Buttons: []chat.Button{cancelButton()}})
}

func (h *Handler) promptTime(ctx context.Context, chatID int64, problem string) {
	text := "Enter the deadline time (HH:MM):"
	if problem != "" {
		text = problem + "\n" + text
	}
	h.send(ctx, chat.Message{ChatID: chatID, Text: text, Buttons: []chat.Button{cancelButton()}})
}

func (h *Handler) stepTaskDate(ctx context.Context, ev chat.Event, s wizard.TaskDate) {
	if ev.IsCallback() {
		h.promptDate(ctx, ev.ChatID, "")
		return
	}
	now := h.localNow()
	date, err := dateparse.ParseDateFrom(ev.Text, now)
	if err != nil {
		h.promptDate(ctx, ev.ChatID, "⚠️ I could not read that date.")
		return
	}
	y, m, d := now.Date()
	if date.Before(time.Date(y, m, d, 0, 0, 0, 0, h.loc)) {
		h.promptDate(ctx, ev.ChatID, "❌ That date is in the past.")
		return
	}
	h.sessions.Set(keyOf(ev), wizard.TaskTime{Text: s.Text, AssigneeID: s.AssigneeID, Date: date})
	h.promptTime(ctx, ev.ChatID, "")
}

func (h *Handler) stepTaskTime(ctx context.Context, ev chat.Event, s wizard.TaskTime) {
	if ev.IsCallback() {
		h.promptTime(ctx, ev.ChatID, "")
		return
	}
	clock, err := dateparse.ParseClock(ev.Text)
	if err != nil {
		h.promptTime(ctx, ev.ChatID, "⚠️ I could not read that time.")
		return
	}

	deadline := dateparse.Combine(s.Date, clock)
	back := wizard.TaskDate{Text: s.Text, AssigneeID: s.AssigneeID}
	if !deadline.After(h.now()) {
		h.sessions.Set(keyOf(ev), back)
		h.promptDate(ctx, ev.ChatID, "❌ The deadline must be in the future.")
		return
	}

	creator := h.user(ctx, ev)
	if creator == nil {
		h.sessions.Clear(keyOf(ev))
		return
	}
	assignee, err := h.reg.Get(ctx, s.AssigneeID)
	if errors.Is(err, registry.ErrNotRegistered) {
		h.abort(ctx, ev, "That user is not registered.")
		return
	}
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "get user", err)
		return
	}
	if !visibility.CanAssign(creator, assignee) {
		h.abort(ctx, ev, "You cannot assign tasks to that user.")
		return
	}

	task := &models.Task{
		CreatorID:  creator.ID,
		AssigneeID: s.AssigneeID,
		Text:       s.Text,
		Deadline:   deadline,
	}
	id, err := h.tasks.CreateTask(ctx, task)
	if errors.Is(err, store.ErrDeadlineNotFuture) {
		h.sessions.Set(keyOf(ev), back)
		h.promptDate(ctx, ev.ChatID, "❌ The deadline must be in the future.")
		return
	}
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "create task", err)
		return
	}
	h.sessions.Clear(keyOf(ev))

	armed := h.sched.Schedule(task)
	h.log.Info("task created", "task", id, "creator", task.CreatorID, "assignee", task.AssigneeID, "reminders", armed)
	h.publish(events.EntityTasks, events.ActionCreated, id, task.CreatorID, map[string]any{
		"assignee_id": task.AssigneeID,
		"text":        task.Text,
		"deadline":    task.Deadline.UTC().Format(time.RFC3339),
	})

	h.sendKeyboard(ctx, ev.ChatID, ev.UserID, fmt.Sprintf("✅ Task #%d created, due %s.", id, h.formatDeadline(task.Deadline)))

	if task.AssigneeID != task.CreatorID {
		h.send(ctx, chat.Message{
			ChatID:  task.AssigneeID,
			Text:    fmt.Sprintf("📌 New task #%d from %s, due %s:\n%s", id, creator.DisplayName(), h.formatDeadline(task.Deadline), task.Text),
			Buttons: []chat.Button{doneButton(id)},
		})
	}
}

// Role change

func (h *Handler) director(ctx context.Context, ev chat.Event) *models.User {
	u := h.user(ctx, ev)
	if u == nil {
		h.sessions.Clear(keyOf(ev))
		return nil
	}
	if u.Role != models.RoleDirector {
		h.abort(ctx, ev, "Only directors can change roles.")
		return nil
	}
	return u
}

func (h *Handler) stepRoleTarget(ctx context.Context, ev chat.Event) {
	u := h.director(ctx, ev)
	if u == nil {
		return
	}
	id, ok := callbackID(ev.CallbackData, cbTarget)
	if !ok {
		h.reply(ctx, ev.ChatID, "Choose a user with the buttons above, or /cancel.")
		return
	}
	target, err := h.reg.Get(ctx, id)
	if err != nil {
		h.abort(ctx, ev, fmt.Sprintf("User %d not found.", id))
		return
	}

	h.sessions.Set(keyOf(ev), wizard.RoleChoice{TargetID: target.ID})
	buttons := make([]chat.Button, 0, 4)
	for _, r := range models.AllRoles() {
		buttons = append(buttons, chat.Button{Label: roleLabel(r), Data: cbSetRole + string(r)})
	}
	h.send(ctx, chat.Message{
		ChatID:  ev.ChatID,
		Text:    fmt.Sprintf("%s is currently %s. Choose the new role:", target.DisplayName(), roleLabel(target.Role)),
		Buttons: append(buttons, cancelButton()),
	})
}

func (h *Handler) stepRoleChoice(ctx context.Context, ev chat.Event, s wizard.RoleChoice) {
	if h.director(ctx, ev) == nil {
		return
	}
	if !strings.HasPrefix(ev.CallbackData, cbSetRole) {
		h.reply(ctx, ev.ChatID, "Choose a role with the buttons above, or /cancel.")
		return
	}
	role := models.NormalizeRole(strings.TrimPrefix(ev.CallbackData, cbSetRole))
	if !models.IsValidRole(role) {
		h.reply(ctx, ev.ChatID, "Choose a role with the buttons above, or /cancel.")
		return
	}
	target, err := h.reg.Get(ctx, s.TargetID)
	if err != nil {
		h.abort(ctx, ev, fmt.Sprintf("User %d not found.", s.TargetID))
		return
	}

	h.sessions.Set(keyOf(ev), wizard.RoleConfirm{TargetID: s.TargetID, Role: role})
	h.send(ctx, chat.Message{
		ChatID: ev.ChatID,
		Text:   fmt.Sprintf("Make %s a %s?", target.DisplayName(), strings.ToLower(roleLabel(role))),
		Buttons: []chat.Button{
			{Label: "Yes", Data: cbConfirm + "yes"},
			{Label: "No", Data: cbConfirm + "no"},
		},
	})
}

func (h *Handler) stepRoleConfirm(ctx context.Context, ev chat.Event, s wizard.RoleConfirm) {
	actor := h.director(ctx, ev)
	if actor == nil {
		return
	}
	switch ev.CallbackData {
	case cbConfirm + "yes":
	case cbConfirm + "no":
		h.abort(ctx, ev, "Role change cancelled.")
		return
	default:
		h.reply(ctx, ev.ChatID, "Press Yes or No.")
		return
	}

	target, err := h.reg.SetRole(ctx, s.TargetID, s.Role)
	if errors.Is(err, registry.ErrNotRegistered) {
		h.abort(ctx, ev, fmt.Sprintf("User %d not found.", s.TargetID))
		return
	}
	if err != nil {
		h.sessions.Clear(keyOf(ev))
		h.internalError(ctx, ev.ChatID, "set role", err)
		return
	}
	h.sessions.Clear(keyOf(ev))
	h.log.Info("role changed", "user", target.ID, "role", target.Role, "by", actor.ID)
	h.publish(events.EntityUsers, events.ActionRoleChanged, target.ID, actor.ID, map[string]any{
		"role": string(target.Role),
	})

	h.sendKeyboard(ctx, ev.ChatID, ev.UserID, fmt.Sprintf("%s is now %s.", target.DisplayName(), roleLabel(target.Role)))
	h.send(ctx, chat.Message{
		ChatID:   target.ID,
		Text:     fmt.Sprintf("Your role was changed to %s.", roleLabel(target.Role)),
		Keyboard: keyboardFor(target.Role),
	})
}
