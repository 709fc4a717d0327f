// Package registry is the identity and role registry: who is registered,
// their role, department, and position in the superior hierarchy.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/store"
)

// ErrNotRegistered is returned for ids that have never registered
var ErrNotRegistered = errors.New("user is not registered")

// Registry manages users over a store.Users backend
type Registry struct {
	users store.Users

	// serializes Register so only one caller can be "first"
	regMu sync.Mutex
}

// New creates a registry over the given backend
func New(users store.Users) *Registry {
	return &Registry{users: users}
}

// Upsert inserts or merges a user. Empty department, zero superior and
// empty role in u never overwrite stored values.
func (r *Registry) Upsert(ctx context.Context, u *models.User) error {
	if u.Role != "" {
		u.Role = models.NormalizeRole(string(u.Role))
		if !models.IsValidRole(u.Role) {
			return fmt.Errorf("invalid role %q", u.Role)
		}
	}
	return r.users.UpsertUser(ctx, u)
}

// Get returns a registered user or ErrNotRegistered
func (r *Registry) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotRegistered, id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all users in registration order
func (r *Registry) List(ctx context.Context) ([]models.User, error) {
	return r.users.ListUsers(ctx)
}

// Register creates or updates a user from the registration wizard.
// The first user ever registered becomes director whatever role was asked
// for. Everyone else who has no superior yet gets the earliest director.
// Returns the stored user.
func (r *Registry) Register(ctx context.Context, id int64, name string, role models.Role) (*models.User, error) {
	r.regMu.Lock()
	defer r.regMu.Unlock()

	all, err := r.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	first := true
	var existing *models.User
	for i := range all {
		if all[i].ID == id {
			existing = &all[i]
			continue
		}
		first = false
	}

	u := &models.User{ID: id, Name: name, Role: role}
	if first {
		u.Role = models.RoleDirector
	}
	if u.Role != models.RoleDirector && (existing == nil || existing.SuperiorID == 0) {
		if d := earliestDirector(all, id); d != nil {
			u.SuperiorID = d.ID
		}
	}

	if err := r.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("register %d: %w", id, err)
	}
	return u, nil
}

// SetRole changes a registered user's role
func (r *Registry) SetRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	role = models.NormalizeRole(string(role))
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	return r.update(ctx, id, func(u *models.User) { u.Role = role })
}

// SetDepartment changes a registered user's department label
func (r *Registry) SetDepartment(ctx context.Context, id int64, dept string) (*models.User, error) {
	if dept == "" {
		return nil, fmt.Errorf("department is required")
	}
	return r.update(ctx, id, func(u *models.User) { u.Department = dept })
}

// SetSuperior links id to a superior. The superior must be registered and
// must not be id itself.
func (r *Registry) SetSuperior(ctx context.Context, id, superiorID int64) (*models.User, error) {
	if id == superiorID {
		return nil, fmt.Errorf("user %d cannot be their own superior", id)
	}
	if _, err := r.Get(ctx, superiorID); err != nil {
		return nil, err
	}
	return r.update(ctx, id, func(u *models.User) { u.SuperiorID = superiorID })
}

func (r *Registry) update(ctx context.Context, id int64, fn func(*models.User)) (*models.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(u)
	if err := r.users.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

func earliestDirector(users []models.User, exclude int64) *models.User {
	for i := range users {
		if users[i].ID != exclude && users[i].Role == models.RoleDirector {
			return &users[i]
		}
	}
	return nil
}
