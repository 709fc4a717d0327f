package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/marcus/taskbot/internal/config"
	"github.com/marcus/taskbot/internal/db"
	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store/memstore"
)

func TestRoleValue(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Role
		wantErr bool
	}{
		{"manager", models.RoleManager, false},
		{"Chief", models.RoleDirector, false},
		{" employee ", models.RoleEmployee, false},
		{"intern", "", true},
	}
	for _, tt := range tests {
		var r roleValue
		err := r.Set(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Set(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if r.role != tt.want {
			t.Errorf("Set(%q) = %q, want %q", tt.in, r.role, tt.want)
		}
	}
	if (&roleValue{}).Type() != "role" {
		t.Error("Type() should be role")
	}
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "****"},
		{"123456:ABCDEF", "1234****"},
	}
	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"#7", 7, false},
		{"0", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTaskID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseTaskID(%q) = %d, %v; want %d, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		warn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"ERROR", false, false},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		l := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
		ctx := context.Background()
		if got := l.Enabled(ctx, slog.LevelDebug); got != tt.debug {
			t.Errorf("%s: debug enabled = %v, want %v", tt.level, got, tt.debug)
		}
		if got := l.Enabled(ctx, slog.LevelWarn); got != tt.warn {
			t.Errorf("%s: warn enabled = %v, want %v", tt.level, got, tt.warn)
		}
	}
}

func TestOpenStoreMemoryIsExplicit(t *testing.T) {
	st, err := openStore("memory", slog.Default())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*memstore.Store); !ok {
		t.Errorf("got %T, want *memstore.Store", st)
	}

	path := filepath.Join(t.TempDir(), "bot.db")
	st2, err := openStore(path, slog.Default())
	if err != nil {
		t.Fatalf("openStore(%s): %v", path, err)
	}
	defer st2.Close()
	if _, ok := st2.(*db.DB); !ok {
		t.Errorf("got %T, want *db.DB", st2)
	}
}

func TestUsersAddAndSet(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bot.db")
	base := []string{"--config", filepath.Join(dir, "missing.yaml"), "--storage", dbPath}

	run := func(args ...string) {
		t.Helper()
		rootCmd.SetArgs(append(args, base...))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	t.Cleanup(func() {
		configPath, storageFlag = "", ""
		addRole, setRole = roleValue{}, roleValue{}
	})

	run("users", "add", "1", "Dina")
	run("users", "add", "2", "Sam", "--role", "manager")
	run("users", "set", "2", "--dept", "sales")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	dina, err := database.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser(1): %v", err)
	}
	if dina.Role != models.RoleDirector {
		t.Errorf("first user role = %q, want director", dina.Role)
	}
	sam, err := database.GetUser(ctx, 2)
	if err != nil {
		t.Fatalf("GetUser(2): %v", err)
	}
	if sam.Role != models.RoleManager || sam.Department != "sales" || sam.SuperiorID != 1 {
		t.Errorf("got %+v, want manager in sales reporting to 1", sam)
	}
}
