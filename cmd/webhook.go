package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/taskbot/internal/events"
	"github.com/marcus/taskbot/internal/output"
	"github.com/marcus/taskbot/internal/webhook"
)

var webhookCmd = &cobra.Command{
	Use:     "webhook",
	Short:   "Inspect outbound webhook settings",
	GroupID: "system",
}

var webhookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current webhook configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Webhook.URL == "" {
			fmt.Println("Webhook: not configured")
			return nil
		}
		fmt.Printf("Webhook URL: %s\n", cfg.Webhook.URL)
		if cfg.Webhook.Secret != "" {
			fmt.Println("HMAC secret: configured")
		} else {
			fmt.Println("HMAC secret: not set")
		}
		return nil
	},
}

var webhookTestCmd = &cobra.Command{
	Use:   "test",
	Short: "POST a test event to the configured webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Webhook.URL == "" {
			output.Error("webhook URL is not configured")
			return fmt.Errorf("webhook URL is not configured")
		}

		ev := events.New(events.EntityUsers, events.ActionRegistered, 0, 0, map[string]any{"test": true})
		payload := webhook.BuildPayload("taskbot", []events.Event{ev})

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		if err := webhook.Dispatch(ctx, cfg.Webhook.URL, cfg.Webhook.Secret, payload); err != nil {
			output.Error("delivery failed: %v", err)
			return err
		}
		output.Success("delivered test event %s", ev.ID)
		return nil
	},
}

func init() {
	webhookCmd.AddCommand(webhookStatusCmd, webhookTestCmd)
	rootCmd.AddCommand(webhookCmd)
}
