// Package config loads bot settings from an optional YAML/JSON file,
// a .env file and TASKBOT_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "taskbot.yaml"

// Config is the full bot configuration
type Config struct {
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
	Storage  string         `yaml:"storage" json:"storage" env:"TASKBOT_STORAGE" env-default:"./data/taskbot.db" env-description:"sqlite path, postgres:// URL, or memory"`
	Timezone string         `yaml:"timezone" json:"timezone" env:"TASKBOT_TIMEZONE" env-default:"Europe/Moscow"`
	Workers  int            `yaml:"workers" json:"workers" env:"TASKBOT_WORKERS" env-default:"4"`
	Archive  ArchiveConfig  `yaml:"archive" json:"archive"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Webhook  WebhookConfig  `yaml:"webhook" json:"webhook"`
}

// TelegramConfig holds bot API settings
type TelegramConfig struct {
	Token       string `yaml:"token" json:"token" env:"TASKBOT_TELEGRAM_TOKEN"`
	PollTimeout int    `yaml:"poll_timeout" json:"poll_timeout" env:"TASKBOT_POLL_TIMEOUT" env-default:"30"`
	Debug       bool   `yaml:"debug" json:"debug" env:"TASKBOT_TELEGRAM_DEBUG"`
}

// ArchiveConfig controls the background archive sweep
type ArchiveConfig struct {
	Retention Days          `yaml:"retention" json:"retention" env:"TASKBOT_ARCHIVE_RETENTION" env-default:"30d"`
	Interval  time.Duration `yaml:"interval" json:"interval" env:"TASKBOT_ARCHIVE_INTERVAL" env-default:"1h"`
}

// LogConfig controls slog output
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"TASKBOT_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" json:"format" env:"TASKBOT_LOG_FORMAT" env-default:"text"`
}

// WebhookConfig controls outbound event delivery
type WebhookConfig struct {
	URL       string `yaml:"url,omitempty" json:"url,omitempty" env:"TASKBOT_WEBHOOK_URL"`
	Secret    string `yaml:"secret,omitempty" json:"secret,omitempty" env:"TASKBOT_WEBHOOK_SECRET"`
	QueueSize int    `yaml:"queue_size,omitempty" json:"queue_size,omitempty" env:"TASKBOT_WEBHOOK_QUEUE" env-default:"256"`
}

// Load reads configuration. A .env file in the working directory is
// applied to the environment first. A missing config file is not an
// error; environment variables and defaults fill everything in.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, cfg.Validate()
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage) == "" {
		return fmt.Errorf("storage is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Archive.Interval <= 0 {
		return fmt.Errorf("archive interval must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Usage returns a description of every supported environment variable
func Usage() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

// Save writes the config to path using atomic write (temp file + rename).
// The format follows the extension: .json, otherwise YAML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	// Atomic write: temp file in same dir, then rename
	tmp, err := os.CreateTemp(dir, "taskbot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// The file holds the bot token
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
