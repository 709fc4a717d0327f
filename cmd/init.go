package cmd

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/db"
	"github.com/marcus/taskbot/internal/output"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create a config file and the database",
	Long:    `Asks for the bot token and storage settings, writes the config file and runs database migrations.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			output.Warning("%s already exists (use --force to overwrite)", path)
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			if err := initForm(cfg).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					output.Warning("aborted")
					return nil
				}
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			output.Error("%v", err)
			return err
		}

		if err := config.Save(path, cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("wrote %s", path)

		kind, _, err := db.ParseDSN(cfg.Storage)
		if err != nil {
			return err
		}
		if kind == db.KindMemory {
			output.Warning("storage is in-memory; nothing to migrate")
			return nil
		}
		database, err := db.Open(cfg.Storage)
		if err != nil {
			output.Error("open storage: %v", err)
			return err
		}
		defer database.Close()

		v, err := database.GetSchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		output.Success("storage ready (%s, schema v%d)", database.Kind(), v)
		return nil
	},
}

// initForm edits cfg in place
func initForm(cfg *config.Config) *huh.Form {
	retention := cfg.Archive.Retention.String()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Telegram.Token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("token is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Storage").
				Description("SQLite file path or postgres:// URL").
				Value(&cfg.Storage).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("storage is required")
					}
					_, _, err := db.ParseDSN(s)
					return err
				}),
			huh.NewInput().
				Title("Timezone").
				Description("IANA name used to read and show deadlines").
				Value(&cfg.Timezone).
				Validate(func(s string) error {
					_, err := time.LoadLocation(s)
					return err
				}),
			huh.NewInput().
				Title("Archive after").
				Description("e.g. 30d or 720h").
				Value(&retention).
				Validate(func(s string) error {
					return cfg.Archive.Retention.SetValue(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Webhook URL (optional)").
				Value(&cfg.Webhook.URL),
			huh.NewInput().
				Title("Webhook secret (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Webhook.Secret),
		),
	).WithShowHelp(true)
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	initCmd.Flags().BoolP("yes", "y", false, "skip the form; use flags, environment and defaults")
	rootCmd.AddCommand(initCmd)
}
