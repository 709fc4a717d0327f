package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/db"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/store/memstore"
)

const defaultConfigHint = config.DefaultPath + " if present"

// loadConfig reads the config file and environment, then applies flag
// overrides
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if storageFlag != "" {
		cfg.Storage = storageFlag
	}
	return cfg, nil
}

// newLogger builds the process logger from config
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// openStore opens the configured backend. The in-memory backend is only
// used when asked for by name.
func openStore(dsn string, logger *slog.Logger) (store.Store, error) {
	kind, _, err := db.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if kind == db.KindMemory {
		logger.Warn("using in-memory storage, all data is lost on exit")
		return memstore.New(), nil
	}
	database, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	logger.Debug("storage opened", "kind", database.Kind())
	return database, nil
}
