// Package db is the durable store backend: database/sql over SQLite
// (modernc.org/sqlite) or PostgreSQL (pgx stdlib), picked from the DSN.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/marcus/taskbot/internal/store"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	dialect dialect
	now     func() time.Time
}

var _ store.Store = (*DB)(nil)

// Option configures Open
type Option func(*DB)

// WithClock overrides the clock used for created_at/done_at and deadline checks
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// Kind identifies a storage backend
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMemory   Kind = "memory"
)

// ParseDSN classifies a storage connection string.
// Accepted forms: "memory", "postgres://...", "postgresql://...",
// "sqlite://path", "file:path", or a bare file path.
func ParseDSN(dsn string) (Kind, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty storage dsn")
	case dsn == "memory" || dsn == "mem://" || dsn == "memory://":
		return KindMemory, "", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return KindPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return KindSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"):
		return KindSQLite, dsn, nil
	}
	return KindSQLite, dsn, nil
}

// Open opens the database named by dsn and runs any pending migrations
func Open(dsn string, opts ...Option) (*DB, error) {
	kind, target, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	var db *DB
	switch kind {
	case KindSQLite:
		db, err = openSQLite(target)
	case KindPostgres:
		db, err = openPostgres(target)
	default:
		return nil, fmt.Errorf("storage %q is not a SQL backend", dsn)
	}
	if err != nil {
		return nil, err
	}

	db.now = time.Now
	for _, opt := range opts {
		opt(db)
	}

	if _, err := db.RunMigrations(); err != nil {
		db.conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func openSQLite(path string) (*DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: the bot and timer callbacks share it, and an
	// in-memory database would otherwise be per-connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	return &DB{conn: conn, dialect: sqliteDialect}, nil
}

func openPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{conn: conn, dialect: postgresDialect}, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// Kind returns the backend kind
func (db *DB) Kind() Kind {
	return db.dialect.kind
}

// dialect captures the handful of SQL differences between backends
type dialect struct {
	kind   Kind
	schema string
}

var (
	sqliteDialect   = dialect{kind: KindSQLite, schema: sqliteSchema}
	postgresDialect = dialect{kind: KindPostgres, schema: postgresSchema}
)

// rebind rewrites ? placeholders to $N for postgres
func (d dialect) rebind(query string) string {
	if d.kind != KindPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.dialect.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.dialect.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.dialect.rebind(query), args...)
}
