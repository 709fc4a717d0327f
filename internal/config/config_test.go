package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage != "./data/taskbot.db" {
		t.Errorf("Storage = %q, want ./data/taskbot.db", cfg.Storage)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Archive.Retention.Duration() != 30*24*time.Hour {
		t.Errorf("Retention = %v, want 720h", cfg.Archive.Retention.Duration())
	}
	if cfg.Archive.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", cfg.Archive.Interval)
	}
	if cfg.Telegram.PollTimeout != 30 {
		t.Errorf("PollTimeout = %d, want 30", cfg.Telegram.PollTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TASKBOT_STORAGE", "postgres://localhost/taskbot")
	t.Setenv("TASKBOT_ARCHIVE_RETENTION", "7d")
	t.Setenv("TASKBOT_WORKERS", "8")
	t.Setenv("TASKBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TASKBOT_TIMEZONE", "UTC")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage != "postgres://localhost/taskbot" {
		t.Errorf("Storage = %q", cfg.Storage)
	}
	if cfg.Archive.Retention.Duration() != 7*24*time.Hour {
		t.Errorf("Retention = %v, want 168h", cfg.Archive.Retention.Duration())
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Token = %q, want 123:abc", cfg.Telegram.Token)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskbot.yaml")
	content := `
storage: /var/lib/taskbot/bot.db
timezone: UTC
workers: 2
archive:
  retention: 14d
  interval: 30m
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKBOT_WORKERS", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage != "/var/lib/taskbot/bot.db" {
		t.Errorf("Storage = %q", cfg.Storage)
	}
	if cfg.Archive.Retention.Duration() != 14*24*time.Hour {
		t.Errorf("Retention = %v, want 336h", cfg.Archive.Retention.Duration())
	}
	if cfg.Archive.Interval != 30*time.Minute {
		t.Errorf("Interval = %v, want 30m", cfg.Archive.Interval)
	}
	if cfg.Workers != 6 {
		t.Errorf("Workers = %d, want env override 6", cfg.Workers)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Storage: "memory", Timezone: "UTC", Workers: 1,
			Archive: ArchiveConfig{Interval: time.Hour}, Log: LogConfig{Format: "text"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty storage", func(c *Config) { c.Storage = " " }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"zero interval", func(c *Config) { c.Archive.Interval = 0 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDaysDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{" 1d ", 24 * time.Hour, false},
		{"36h", 36 * time.Hour, false},
		{"0d", 0, true},
		{"-5d", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDaysDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDaysDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDaysDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDaysString(t *testing.T) {
	if s := Days(30 * 24 * time.Hour).String(); s != "30d" {
		t.Errorf("String = %q, want 30d", s)
	}
	if s := Days(36 * time.Hour).String(); s != "36h0m0s" {
		t.Errorf("String = %q, want 36h0m0s", s)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"taskbot.yaml", "taskbot.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "conf", name)
			cfg := &Config{
				Telegram: TelegramConfig{Token: "42:secret", PollTimeout: 10},
				Storage:  "./bot.db",
				Timezone: "UTC",
				Workers:  3,
				Archive:  ArchiveConfig{Retention: Days(10 * 24 * time.Hour), Interval: 2 * time.Hour},
				Log:      LogConfig{Level: "warn", Format: "json"},
			}
			if err := Save(path, cfg); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("mode = %v, want 0600", info.Mode().Perm())
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.Telegram.Token != "42:secret" {
				t.Errorf("Token = %q", got.Telegram.Token)
			}
			if got.Archive.Retention.Duration() != 10*24*time.Hour {
				t.Errorf("Retention = %v", got.Archive.Retention.Duration())
			}
			if got.Archive.Interval != 2*time.Hour {
				t.Errorf("Interval = %v", got.Archive.Interval)
			}
			if got.Workers != 3 {
				t.Errorf("Workers = %d", got.Workers)
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("leftover temp files: %d entries", len(entries))
			}
		})
	}
}
