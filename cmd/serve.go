package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marcus/taskbot/internal/archive"
	"github.com/marcus/taskbot/internal/bot"
	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/db"
	"github.com/marcus/taskbot/internal/registry"
	"github.com/marcus/taskbot/internal/reminder"
	"github.com/marcus/taskbot/internal/telegram"
	"github.com/marcus/taskbot/internal/webhook"
)

const (
	dispatchQueueSize = 64
	lockTimeout       = 2 * time.Second
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the bot",
	Long:    `Connects to Telegram, restores reminder timers for open tasks and handles chats until interrupted.`,
	GroupID: "bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("telegram token is not set (TASKBOT_TELEGRAM_TOKEN or telegram.token)")
		}

		logger := newLogger(cfg.Log)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if path, ok := db.LockPath(cfg.Storage); ok {
		lock, err := db.AcquireLock(path, lockTimeout)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := openStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := telegram.Dial(cfg.Telegram.Token, time.Duration(cfg.Telegram.PollTimeout)*time.Second, cfg.Telegram.Debug, logger)
	if err != nil {
		return err
	}

	pub := webhook.NewPublisher(webhook.Config{
		URL:       cfg.Webhook.URL,
		Secret:    cfg.Webhook.Secret,
		QueueSize: cfg.Webhook.QueueSize,
	}, "taskbot", logger)

	handler := bot.NewHandler(bot.Deps{
		Registry:  registry.New(st),
		Tasks:     st,
		Sender:    client,
		Publisher: pub,
		Location:  loc,
		Logger:    logger,
	})
	sched := reminder.New(st, handler, reminder.WithLogger(logger))
	handler.SetScheduler(sched)
	defer sched.Stop()

	if _, err := sched.Restore(ctx); err != nil {
		return err
	}

	sweeper := archive.New(st, cfg.Archive.Retention.Duration(), cfg.Archive.Interval, pub)
	dispatcher := bot.NewDispatcher(handler, cfg.Workers, dispatchQueueSize, logger)

	logger.Info("taskbot started",
		"version", version,
		"workers", dispatcher.Workers(),
		"timezone", loc.String(),
		"webhook", cfg.Webhook.URL != "",
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return client.Run(ctx, dispatcher.Dispatch) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return pub.Run(ctx) })

	err = g.Wait()
	logger.Info("taskbot stopped")
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
