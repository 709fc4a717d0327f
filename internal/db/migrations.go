package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// columnExists checks whether a column exists on a table
func (db *DB) columnExists(ctx context.Context, table, column string) (bool, error) {
	if db.dialect.kind == KindPostgres {
		var count int
		err := db.queryRow(ctx, `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
			table, column).Scan(&count)
		return count > 0, err
	}

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s);", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}

// GetSchemaVersion returns the current schema version from the database
func (db *DB) GetSchemaVersion(ctx context.Context) (int, error) {
	var version string
	err := db.queryRow(ctx, `SELECT value FROM schema_info WHERE key = 'version'`).Scan(&version)
	if err == sql.ErrNoRows {
		// No version set, assume version 0 (pre-migration)
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet
		return 0, nil
	}
	v, _ := strconv.Atoi(version)
	return v, nil
}

func (db *DB) setSchemaVersion(ctx context.Context, version int) error {
	_, err := db.exec(ctx, `
		INSERT INTO schema_info (key, value) VALUES ('version', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(version))
	return err
}

// RunMigrations creates the base schema on a fresh database and applies
// pending migrations. Returns the number of migrations applied.
func (db *DB) RunMigrations() (int, error) {
	ctx := context.Background()

	if _, err := db.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion, err := db.GetSchemaVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	if currentVersion == 0 {
		if _, err := db.conn.ExecContext(ctx, db.dialect.schema); err != nil {
			return 0, fmt.Errorf("create schema: %w", err)
		}
		if err := db.setSchemaVersion(ctx, 1); err != nil {
			return 0, fmt.Errorf("set version 1: %w", err)
		}
		currentVersion = 1
	}

	migrationsRun := 0
	for _, migration := range Migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if migration.Version == 2 {
			exists, err := db.columnExists(ctx, "tasks", "reminders_sent")
			if err != nil {
				return migrationsRun, fmt.Errorf("check column reminders_sent: %w", err)
			}
			if exists {
				if err := db.setSchemaVersion(ctx, migration.Version); err != nil {
					return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
				}
				migrationsRun++
				continue
			}
		}
		if _, err := db.conn.ExecContext(ctx, migration.SQL); err != nil {
			return migrationsRun, fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
		}
		if err := db.setSchemaVersion(ctx, migration.Version); err != nil {
			return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
		}
		migrationsRun++
	}

	return migrationsRun, nil
}
