package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the taskbot version",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("taskbot " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
