package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/output"
	"github.com/marcus/taskbot/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Inspect and complete tasks",
	GroupID: "data",
}

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		opts := store.ListOptions{}
		opts.IncludeArchived, _ = flags.GetBool("all")
		if s, _ := flags.GetString("status"); s != "" {
			opts.Status = models.Status(s)
			if !models.IsValidStatus(opts.Status) {
				return fmt.Errorf("invalid status %q (use new or done)", s)
			}
		}

		cfg, st, err := openData()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()

		var tasks []models.Task
		if flags.Changed("user") {
			uid, _ := flags.GetInt64("user")
			tasks, err = st.ListFor(ctx, uid, store.ScopeOwn, opts)
		} else {
			tasks, err = st.ListTasks(ctx, opts)
		}
		if err != nil {
			output.Error("list tasks: %v", err)
			return err
		}

		if asJSON, _ := flags.GetBool("json"); asJSON {
			return output.JSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks")
			return nil
		}
		names, err := userNames(cmd, st)
		if err != nil {
			return err
		}
		loc, _ := cfg.Location()
		now := time.Now()
		for i := range tasks {
			fmt.Println(output.FormatTaskShort(&tasks[i], names, now, loc))
		}
		return nil
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		cfg, st, err := openData()
		if err != nil {
			return err
		}
		defer st.Close()

		t, err := st.GetTask(cmd.Context(), id)
		if errors.Is(err, store.ErrTaskNotFound) {
			output.Error("task #%d not found", id)
			return err
		}
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(t)
		}
		names, err := userNames(cmd, st)
		if err != nil {
			return err
		}
		loc, _ := cfg.Location()
		fmt.Println(output.FormatTaskLong(t, names, loc))
		return nil
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task done",
	Long:  `Marks a task done from the operator console. Nobody is notified and running bots keep their timers until the reminder finds the task closed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		_, st, err := openData()
		if err != nil {
			return err
		}
		defer st.Close()

		changed, err := st.MarkDone(cmd.Context(), id)
		if err != nil {
			output.Error("mark done: %v", err)
			return err
		}
		if !changed {
			output.Warning("task #%d is missing or already done", id)
			return nil
		}
		output.Success("task #%d done", id)
		return nil
	},
}

func parseTaskID(s string) (int64, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func openData() (*config.Config, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg.Storage, newLogger(cfg.Log))
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func userNames(cmd *cobra.Command, st store.Users) (map[int64]string, error) {
	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

func init() {
	tasksListCmd.Flags().Int64("user", 0, "only tasks created by or assigned to this telegram id")
	tasksListCmd.Flags().String("status", "", "new or done")
	tasksListCmd.Flags().BoolP("all", "a", false, "include archived tasks")
	tasksListCmd.Flags().Bool("json", false, "output JSON")
	tasksShowCmd.Flags().Bool("json", false, "output JSON")

	tasksCmd.AddCommand(tasksListCmd, tasksShowCmd, tasksDoneCmd)
	rootCmd.AddCommand(tasksCmd)
}
