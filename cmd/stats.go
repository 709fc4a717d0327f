package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/taskbot/internal/output"
	"github.com/marcus/taskbot/internal/stats"
	"github.com/marcus/taskbot/internal/store"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show task statistics",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openData()
		if err != nil {
			return err
		}
		defer st.Close()

		tasks, err := st.ListTasks(cmd.Context(), store.ListOptions{IncludeArchived: true})
		if err != nil {
			output.Error("list tasks: %v", err)
			return err
		}
		summary := stats.Summarize(tasks, time.Now())
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(summary)
		}

		names, err := userNames(cmd, st)
		if err != nil {
			return err
		}
		rendered, err := output.Markdown(summary.Markdown(names))
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(statsCmd)
}
