package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/taskbot/internal/chat"
	"github.com/marcus/taskbot/internal/models"
)

const (
	cmdStart     = "/start"
	cmdHelp      = "/help"
	cmdNewTask   = "/newtask"
	cmdTasks     = "/tasks"
	cmdCompleted = "/completed"
	cmdDone      = "/done"
	cmdTeam      = "/team"
	cmdRole      = "/role"
	cmdStats     = "/stats"
	cmdSetDept   = "/setdept"
	cmdCancel    = "/cancel"
)

// Callback data prefixes
const (
	cbDone    = "done:"
	cbRole    = "role:"
	cbAssign  = "assign:"
	cbTarget  = "target:"
	cbSetRole = "setrole:"
	cbConfirm = "confirm:"
	cbCancel  = "cancel"
)

const (
	labelNewTask   = "📝 New task"
	labelTasks     = "📋 Tasks"
	labelCompleted = "✅ Completed"
	labelTeam      = "👥 Team"
	labelStats     = "📊 Stats"
	labelRoles     = "🔑 Roles"
	labelHelp      = "❓ Help"
)

var labelCommands = map[string]string{
	labelNewTask:   cmdNewTask,
	labelTasks:     cmdTasks,
	labelCompleted: cmdCompleted,
	labelTeam:      cmdTeam,
	labelStats:     cmdStats,
	labelRoles:     cmdRole,
	labelHelp:      cmdHelp,
}

// parseCommand maps a message to a command and its arguments. Keyboard
// labels map to their command. "/cmd@botname" is accepted.
func parseCommand(text string) (string, []string) {
	text = strings.TrimSpace(text)
	if cmd, ok := labelCommands[text]; ok {
		return cmd, nil
	}
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

func commandOf(text string) string {
	cmd, _ := parseCommand(text)
	return cmd
}

// keyboardFor returns the reply keyboard for a role
func keyboardFor(role models.Role) [][]string {
	rows := [][]string{
		{labelNewTask, labelTasks},
		{labelCompleted, labelHelp},
	}
	switch role {
	case models.RoleManager:
		rows = append(rows, []string{labelTeam, labelStats})
	case models.RoleDirector:
		rows = append(rows, []string{labelTeam, labelStats}, []string{labelRoles})
	}
	return rows
}

func helpText(role models.Role) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("/newtask - create a task\n")
	b.WriteString("/tasks - open tasks\n")
	b.WriteString("/completed - your completed tasks\n")
	b.WriteString("/done <id> - mark a task done\n")
	if role == models.RoleManager || role == models.RoleDirector {
		b.WriteString("/team - your team\n")
		b.WriteString("/stats - task statistics\n")
	}
	if role == models.RoleDirector {
		b.WriteString("/role - change a user's role\n")
		b.WriteString("/setdept <user_id> <department> - set a user's department\n")
	}
	b.WriteString("/cancel - abort the current dialog")
	return b.String()
}

func cancelButton() chat.Button {
	return chat.Button{Label: "Cancel", Data: cbCancel}
}

func doneButton(taskID int64) chat.Button {
	return chat.Button{Label: fmt.Sprintf("✅ Done #%d", taskID), Data: cbDone + strconv.FormatInt(taskID, 10)}
}

// callbackID parses the numeric suffix of callback data with the given prefix
func callbackID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) formatDeadline(t time.Time) string {
	return t.In(h.loc).Format("02.01.2006 15:04")
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RoleEmployee:
		return "Employee"
	case models.RoleManager:
		return "Manager"
	case models.RoleDirector:
		return "Director"
	}
	return string(r)
}

func userLine(u *models.User) string {
	line := fmt.Sprintf("%s (%s, id %d)", u.DisplayName(), roleLabel(u.Role), u.ID)
	if u.Department != "" {
		line += " [" + u.Department + "]"
	}
	return line
}

func nameOf(names map[int64]*models.User, id int64) string {
	if u, ok := names[id]; ok {
		return u.DisplayName()
	}
	return strconv.FormatInt(id, 10)
}
