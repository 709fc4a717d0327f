package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
)

const userColumns = `id, name, role, department, superior_id, created_at, updated_at`

// UpsertUser inserts or merges a user record. Empty fields in u keep the
// stored values; u is updated with the merged result.
func (db *DB) UpsertUser(ctx context.Context, u *models.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existing *models.User
	row := tx.QueryRowContext(ctx, db.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), u.ID)
	cur, err := scanUser(row)
	switch {
	case err == nil:
		existing = cur
	case err == store.ErrUserNotFound:
	default:
		return err
	}

	merged := store.MergeUser(existing, u)
	now := db.now().UTC()
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now

	_, err = tx.ExecContext(ctx, db.dialect.rebind(`
		INSERT INTO users (id, name, role, department, superior_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			department = excluded.department,
			superior_id = excluded.superior_id,
			updated_at = excluded.updated_at
	`), merged.ID, merged.Name, string(merged.Role), merged.Department, merged.SuperiorID,
		formatTime(merged.CreatedAt), formatTime(merged.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	*u = merged
	return nil
}

// GetUser retrieves a user by id
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(db.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// ListUsers returns every user in registration order
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role, createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Name, &role, &u.Department, &u.SuperiorID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = models.Role(role)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
