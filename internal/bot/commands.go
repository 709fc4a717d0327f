package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/marcus/taskbot/internal/chat"
	"github.com/marcus/taskbot/internal/events"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/registry"
	"github.com/marcus/taskbot/internal/reminder"
	"github.com/marcus/taskbot/internal/stats"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/visibility"
	"github.com/marcus/taskbot/internal/wizard"
	"github.com/marcus/taskbot/internal/workflow"
)

func (h *Handler) route(ctx context.Context, ev chat.Event, text string) {
	cmd, args := parseCommand(text)
	h.log.Debug("command", "chat", ev.ChatID, "user", ev.UserID, "cmd", cmd)

	switch cmd {
	case cmdStart:
		h.cmdStart(ctx, ev)
	case cmdHelp:
		h.cmdHelp(ctx, ev)
	case cmdNewTask:
		h.cmdNewTask(ctx, ev)
	case cmdTasks:
		h.cmdTasks(ctx, ev)
	case cmdCompleted:
		h.cmdCompleted(ctx, ev)
	case cmdDone:
		h.cmdDone(ctx, ev, args)
	case cmdTeam:
		h.cmdTeam(ctx, ev)
	case cmdRole:
		h.cmdRole(ctx, ev)
	case cmdStats:
		h.cmdStats(ctx, ev)
	case cmdSetDept:
		h.cmdSetDept(ctx, ev, args)
	default:
		h.reply(ctx, ev.ChatID, "Unknown command. Send /help for the list of commands.")
	}
}

func (h *Handler) cmdStart(ctx context.Context, ev chat.Event) {
	u, err := h.reg.Get(ctx, ev.UserID)
	if err == nil {
		h.send(ctx, chat.Message{
			ChatID:   ev.ChatID,
			Text:     fmt.Sprintf("Welcome back, %s! Your role: %s.", u.DisplayName(), roleLabel(u.Role)),
			Keyboard: keyboardFor(u.Role),
		})
		return
	}
	if !errors.Is(err, registry.ErrNotRegistered) {
		h.internalError(ctx, ev.ChatID, "load user", err)
		return
	}

	h.sessions.Set(keyOf(ev), wizard.RegisterRole{})
	h.promptRegisterRole(ctx, ev.ChatID)
}

func (h *Handler) cmdHelp(ctx context.Context, ev chat.Event) {
	role := models.RoleEmployee
	if u, err := h.reg.Get(ctx, ev.UserID); err == nil {
		role = u.Role
	}
	h.reply(ctx, ev.ChatID, helpText(role))
}

func (h *Handler) cmdNewTask(ctx context.Context, ev chat.Event) {
	if h.user(ctx, ev) == nil {
		return
	}
	h.sessions.Set(keyOf(ev), wizard.TaskText{})
	h.send(ctx, chat.Message{ChatID: ev.ChatID, Text: "Describe the task:", Buttons: []chat.Button{cancelButton()}})
}

func (h *Handler) cmdTasks(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	tasks, users, err := h.visibleTasks(ctx, u, store.ListOptions{Status: models.StatusNew})
	if err != nil {
		h.internalError(ctx, ev.ChatID, "list tasks", err)
		return
	}
	if len(tasks) == 0 {
		h.reply(ctx, ev.ChatID, "No open tasks.")
		return
	}

	names := visibility.Index(users)
	now := h.now()
	entries := make([]listEntry, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		e := listEntry{text: fmt.Sprintf("\n#%d %s\n  due %s, %s -> %s", t.ID, clip(t.Text, maxListText),
			h.formatDeadline(t.Deadline), nameOf(names, t.CreatorID), nameOf(names, t.AssigneeID))}
		if t.IsOverdue(now) {
			e.text += " (overdue)"
		}
		if t.Involves(u.ID) {
			b := doneButton(t.ID)
			e.button = &b
		}
		entries = append(entries, e)
	}
	h.sendList(ctx, ev.ChatID, "Open tasks", entries)
}

func (h *Handler) cmdCompleted(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	tasks, err := h.tasks.ListFor(ctx, u.ID, store.ScopeOwn, store.ListOptions{Status: models.StatusDone})
	if err != nil {
		h.internalError(ctx, ev.ChatID, "list completed", err)
		return
	}
	if len(tasks) == 0 {
		h.reply(ctx, ev.ChatID, "No completed tasks.")
		return
	}
	entries := make([]listEntry, 0, len(tasks))
	for _, t := range tasks {
		text := fmt.Sprintf("\n#%d %s", t.ID, clip(t.Text, maxListText))
		if t.DoneAt != nil {
			text += fmt.Sprintf(" (done %s)", h.formatDeadline(*t.DoneAt))
		}
		entries = append(entries, listEntry{text: text})
	}
	h.sendList(ctx, ev.ChatID, "Completed tasks", entries)
}

func (h *Handler) cmdDone(ctx context.Context, ev chat.Event, args []string) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	if len(args) != 1 {
		h.reply(ctx, ev.ChatID, "Usage: /done <task id>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /done <task id>")
		return
	}
	h.complete(ctx, ev.ChatID, u, id)
}

func (h *Handler) handleDoneCallback(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	id, ok := callbackID(ev.CallbackData, cbDone)
	if !ok {
		h.reply(ctx, ev.ChatID, "Task not found.")
		return
	}
	h.complete(ctx, ev.ChatID, u, id)
}

// complete marks a task done on behalf of actor and notifies the other
// participant. Completing an already-done task changes nothing and
// notifies nobody.
func (h *Handler) complete(ctx context.Context, chatID int64, actor *models.User, id int64) {
	t, err := h.tasks.GetTask(ctx, id)
	if errors.Is(err, store.ErrTaskNotFound) {
		h.reply(ctx, chatID, fmt.Sprintf("Task #%d not found.", id))
		return
	}
	if err != nil {
		h.internalError(ctx, chatID, "get task", err)
		return
	}
	if !t.Involves(actor.ID) {
		h.reply(ctx, chatID, "Only the creator or the assignee can complete this task.")
		return
	}
	if t.Status == models.StatusDone {
		h.reply(ctx, chatID, fmt.Sprintf("Task #%d is already done.", id))
		return
	}

	if err := h.flow.CanComplete(t, actor.ID); err != nil {
		if errors.Is(err, workflow.ErrForbidden) {
			h.reply(ctx, chatID, "Only the creator or the assignee can complete this task.")
			return
		}
		h.reply(ctx, chatID, fmt.Sprintf("Task #%d cannot be completed.", id))
		return
	}

	changed, err := h.tasks.MarkDone(ctx, id)
	if err != nil {
		h.internalError(ctx, chatID, "mark done", err)
		return
	}
	if !changed {
		h.reply(ctx, chatID, fmt.Sprintf("Task #%d is already done.", id))
		return
	}

	h.sched.Cancel(id)
	h.publish(events.EntityTasks, events.ActionCompleted, id, actor.ID, map[string]any{
		"creator_id":  t.CreatorID,
		"assignee_id": t.AssigneeID,
	})
	h.log.Info("task completed", "task", id, "by", actor.ID)
	h.reply(ctx, chatID, fmt.Sprintf("✅ Task #%d marked done.", id))

	other := t.CreatorID
	if actor.ID == t.CreatorID {
		other = t.AssigneeID
	}
	if other != actor.ID {
		h.send(ctx, chat.Message{
			ChatID: other,
			Text:   fmt.Sprintf("✅ %s completed task #%d: %s", actor.DisplayName(), id, t.Text),
		})
	}
}

func (h *Handler) cmdTeam(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	if u.Role == models.RoleEmployee {
		h.reply(ctx, ev.ChatID, "Only managers and directors have a team.")
		return
	}

	users, err := h.reg.List(ctx)
	if err != nil {
		h.internalError(ctx, ev.ChatID, "list users", err)
		return
	}
	subs := registry.Subordinates(users, u.ID)
	seen := map[int64]bool{u.ID: true}
	var b strings.Builder
	b.WriteString("Reports to you:")
	if len(subs) == 0 {
		b.WriteString("\n  nobody")
	}
	for i := range subs {
		seen[subs[i].ID] = true
		b.WriteString("\n  " + userLine(&subs[i]))
	}

	var scope []string
	for i := range users {
		if !seen[users[i].ID] && visibility.InScope(u, &users[i]) {
			scope = append(scope, "\n  "+userLine(&users[i]))
		}
	}
	if len(scope) > 0 {
		b.WriteString("\n\nAlso in your scope:")
		b.WriteString(strings.Join(scope, ""))
	}
	h.reply(ctx, ev.ChatID, b.String())
}

func (h *Handler) cmdRole(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	if u.Role != models.RoleDirector {
		h.reply(ctx, ev.ChatID, "Only directors can change roles.")
		return
	}
	users, err := h.reg.List(ctx)
	if err != nil {
		h.internalError(ctx, ev.ChatID, "list users", err)
		return
	}
	var buttons []chat.Button
	for i := range users {
		if users[i].ID == u.ID {
			continue
		}
		buttons = append(buttons, chat.Button{
			Label: fmt.Sprintf("%s (%s)", users[i].DisplayName(), roleLabel(users[i].Role)),
			Data:  cbTarget + strconv.FormatInt(users[i].ID, 10),
		})
	}
	if len(buttons) == 0 {
		h.reply(ctx, ev.ChatID, "There is nobody else registered yet.")
		return
	}
	h.sessions.Set(keyOf(ev), wizard.RoleTarget{})
	h.send(ctx, chat.Message{ChatID: ev.ChatID, Text: "Whose role do you want to change?", Buttons: append(buttons, cancelButton())})
}

func (h *Handler) cmdStats(ctx context.Context, ev chat.Event) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	if u.Role == models.RoleEmployee {
		h.reply(ctx, ev.ChatID, "Statistics are available to managers and directors.")
		return
	}
	tasks, users, err := h.visibleTasks(ctx, u, store.ListOptions{IncludeArchived: true})
	if err != nil {
		h.internalError(ctx, ev.ChatID, "stats", err)
		return
	}
	names := make(map[int64]string, len(users))
	for _, x := range users {
		names[x.ID] = x.DisplayName()
	}
	h.reply(ctx, ev.ChatID, stats.Summarize(tasks, h.now()).Text(names))
}

func (h *Handler) cmdSetDept(ctx context.Context, ev chat.Event, args []string) {
	u := h.user(ctx, ev)
	if u == nil {
		return
	}
	if u.Role != models.RoleDirector {
		h.reply(ctx, ev.ChatID, "Only directors can set departments.")
		return
	}
	if len(args) < 2 {
		h.reply(ctx, ev.ChatID, "Usage: /setdept <user_id> <department>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /setdept <user_id> <department>")
		return
	}
	dept := strings.Join(args[1:], " ")
	target, err := h.reg.SetDepartment(ctx, id, dept)
	if errors.Is(err, registry.ErrNotRegistered) {
		h.reply(ctx, ev.ChatID, fmt.Sprintf("User %d not found.", id))
		return
	}
	if err != nil {
		h.internalError(ctx, ev.ChatID, "set department", err)
		return
	}
	h.reply(ctx, ev.ChatID, fmt.Sprintf("%s is now in %s.", target.DisplayName(), dept))
	if target.ID != u.ID {
		h.reply(ctx, target.ID, fmt.Sprintf("Your department was set to %s.", dept))
	}
}

// visibleTasks lists tasks the user may see. Employees only ever get their
// own tasks; everyone else is filtered from the full list.
func (h *Handler) visibleTasks(ctx context.Context, u *models.User, opts store.ListOptions) ([]models.Task, []models.User, error) {
	users, err := h.reg.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if u.Role == models.RoleEmployee {
		tasks, err := h.tasks.ListFor(ctx, u.ID, store.ScopeOwn, opts)
		return tasks, users, err
	}
	all, err := h.tasks.ListTasks(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return visibility.VisibleTasks(u, all, users), users, nil
}

// NotifyReminder delivers a deadline reminder. The assignee gets the
// pre-deadline reminders with a done button; the creator gets the overdue
// notice.
func (h *Handler) NotifyReminder(ctx context.Context, t *models.Task, kind models.ReminderKind) error {
	msg := chat.Message{ChatID: reminder.Recipient(t, kind)}
	switch kind {
	case models.ReminderDayBefore:
		msg.Text = fmt.Sprintf("⏰ Task #%d is due in 24 hours (%s):\n%s", t.ID, h.formatDeadline(t.Deadline), t.Text)
		msg.Buttons = []chat.Button{doneButton(t.ID)}
	case models.ReminderHourBefore:
		msg.Text = fmt.Sprintf("⏰ Task #%d is due in 1 hour (%s):\n%s", t.ID, h.formatDeadline(t.Deadline), t.Text)
		msg.Buttons = []chat.Button{doneButton(t.ID)}
	case models.ReminderOverdue:
		assignee := strconv.FormatInt(t.AssigneeID, 10)
		if u, err := h.reg.Get(ctx, t.AssigneeID); err == nil {
			assignee = u.DisplayName()
		}
		msg.Text = fmt.Sprintf("⚠️ Task #%d assigned to %s is overdue (was due %s):\n%s", t.ID, assignee, h.formatDeadline(t.Deadline), t.Text)
	default:
		return fmt.Errorf("unknown reminder kind %d", kind)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return err
	}
	h.publish(events.EntityTasks, events.ActionReminderSent, t.ID, 0, map[string]any{
		"kind":      kind.String(),
		"recipient": msg.ChatID,
	})
	return nil
}
