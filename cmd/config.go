package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/output"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Inspect taskbot configuration",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		masked := *cfg
		masked.Telegram.Token = mask(cfg.Telegram.Token)
		masked.Webhook.Secret = mask(cfg.Webhook.Secret)

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(&masked)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables taskbot reads",
	RunE: func(cmd *cobra.Command, args []string) error {
		usage, err := config.Usage()
		if err != nil {
			return err
		}
		fmt.Println(usage)
		return nil
	},
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

func init() {
	configCmd.AddCommand(configShowCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
