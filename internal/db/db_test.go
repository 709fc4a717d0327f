package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/store/storetest"
)

func openTestDB(t *testing.T, now func() time.Time) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "taskbot.db"), WithClock(now))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		return openTestDB(t, now)
	})
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "taskbot.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Database file not created")
	}
	if db.Kind() != KindSQLite {
		t.Errorf("Kind: got %s, want %s", db.Kind(), KindSQLite)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		kind    Kind
		target  string
		wantErr bool
	}{
		{"memory", KindMemory, "", false},
		{"memory://", KindMemory, "", false},
		{"postgres://u:p@localhost/taskbot", KindPostgres, "postgres://u:p@localhost/taskbot", false},
		{"postgresql://localhost/taskbot", KindPostgres, "postgresql://localhost/taskbot", false},
		{"sqlite:///var/lib/taskbot.db", KindSQLite, "/var/lib/taskbot.db", false},
		{"file:taskbot.db?cache=shared", KindSQLite, "file:taskbot.db?cache=shared", false},
		{"./data/taskbot.db", KindSQLite, "./data/taskbot.db", false},
		{"  ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			kind, target, err := ParseDSN(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDSN(%q) error = %v, wantErr %v", tt.dsn, err, tt.wantErr)
			}
			if kind != tt.kind {
				t.Errorf("kind: got %q, want %q", kind, tt.kind)
			}
			if target != tt.target {
				t.Errorf("target: got %q, want %q", target, tt.target)
			}
		})
	}
}

func TestOpenRejectsMemoryDSN(t *testing.T) {
	if _, err := Open("memory"); err == nil {
		t.Fatal("expected error opening memory dsn as SQL backend")
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM tasks WHERE id = ? AND status = ?`

	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := `SELECT * FROM tasks WHERE id = $1 AND status = $2`
	if got := postgresDialect.rebind(q); got != want {
		t.Errorf("postgres rebind: got %s, want %s", got, want)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openTestDB(t, time.Now)
	ctx := context.Background()

	version, err := db.GetSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version: got %d, want %d", version, SchemaVersion)
	}

	exists, err := db.columnExists(ctx, "tasks", "reminders_sent")
	if err != nil {
		t.Fatalf("columnExists failed: %v", err)
	}
	if !exists {
		t.Error("reminders_sent column missing after migrations")
	}

	n, err := db.RunMigrations()
	if err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second RunMigrations applied %d migrations, want 0", n)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskbot.db")
	clock := storetest.NewClock(storetest.Epoch)
	ctx := context.Background()

	db, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	task := &models.Task{CreatorID: 1, AssigneeID: 2, Text: "quarterly report", Deadline: clock.Now().Add(48 * time.Hour)}
	id, err := db.CreateTask(ctx, task)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	db.Close()

	db, err = Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	got, err := db.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Text != "quarterly report" {
		t.Errorf("Text: got %q, want %q", got.Text, "quarterly report")
	}
	if !got.Deadline.Equal(task.Deadline) {
		t.Errorf("Deadline: got %v, want %v", got.Deadline, task.Deadline)
	}

	if _, err := db.GetTask(ctx, id+100); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("GetTask(missing): got %v, want ErrTaskNotFound", err)
	}
}

func TestParseTimeFallback(t *testing.T) {
	got, err := parseTime("2026-03-02T12:00:00+03:00")
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("location: got %v, want UTC", got.Location())
	}
}
