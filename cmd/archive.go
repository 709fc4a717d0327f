package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/taskbot/internal/archive"
	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/output"
)

var archiveCmd = &cobra.Command{
	Use:     "archive",
	Short:   "Archive old tasks now",
	Long:    `Runs one archive sweep: done tasks completed before the retention window and open tasks whose deadline passed before it are hidden from listings.`,
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := openData()
		if err != nil {
			return err
		}
		defer st.Close()

		retention := cfg.Archive.Retention
		if s, _ := cmd.Flags().GetString("retention"); s != "" {
			var d config.Days
			if err := d.SetValue(s); err != nil {
				return err
			}
			retention = d
		}

		sweeper := archive.New(st, retention.Duration(), cfg.Archive.Interval, nil)
		n, err := sweeper.SweepOnce(cmd.Context())
		if err != nil {
			output.Error("archive: %v", err)
			return err
		}
		output.Success("archived %d task(s) older than %s", n, retention)
		return nil
	},
}

func init() {
	archiveCmd.Flags().String("retention", "", "override the retention window, e.g. 30d")
	rootCmd.AddCommand(archiveCmd)
}
