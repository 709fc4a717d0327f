package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/store/storetest"
)

// postgresEnv names a postgres:// DSN for a scratch database. Its tables
// are dropped before every test.
const postgresEnv = "TASKBOT_TEST_POSTGRES"

func openPostgresTestDB(t *testing.T, now func() time.Time) *DB {
	t.Helper()
	dsn := os.Getenv(postgresEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresEnv)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	_, err = conn.Exec(`DROP TABLE IF EXISTS tasks, users, schema_info`)
	conn.Close()
	if err != nil {
		t.Fatalf("reset postgres: %v", err)
	}

	db, err := Open(dsn, WithClock(now))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresStoreContract(t *testing.T) {
	if os.Getenv(postgresEnv) == "" {
		t.Skipf("%s not set", postgresEnv)
	}
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		return openPostgresTestDB(t, now)
	})
}

func TestPostgresMigrations(t *testing.T) {
	db := openPostgresTestDB(t, time.Now)
	ctx := context.Background()

	if db.Kind() != KindPostgres {
		t.Fatalf("kind: got %q, want %q", db.Kind(), KindPostgres)
	}

	version, err := db.GetSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version: got %d, want %d", version, SchemaVersion)
	}

	tests := []struct {
		table, column string
		want          bool
	}{
		{"tasks", "reminders_sent", true},
		{"tasks", "deadline", true},
		{"users", "superior_id", true},
		{"tasks", "no_such_column", false},
	}
	for _, tt := range tests {
		got, err := db.columnExists(ctx, tt.table, tt.column)
		if err != nil {
			t.Fatalf("columnExists(%s, %s): %v", tt.table, tt.column, err)
		}
		if got != tt.want {
			t.Errorf("columnExists(%s, %s) = %v, want %v", tt.table, tt.column, got, tt.want)
		}
	}

	n, err := db.RunMigrations()
	if err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second RunMigrations applied %d migrations, want 0", n)
	}
}
