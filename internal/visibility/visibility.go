// Package visibility decides which users a requester may assign tasks to
// and which tasks a requester may see.
//
// Managers see their department plus the pool of users with no department.
// A pool user therefore sits in every manager's scope at once.
package visibility

import (
	"github.com/marcus/taskbot/internal/models"
)

// InScope reports whether u falls inside requester's scope
func InScope(requester, u *models.User) bool {
	if requester == nil || u == nil {
		return false
	}
	if requester.ID == u.ID {
		return true
	}
	switch requester.Role {
	case models.RoleDirector:
		return true
	case models.RoleManager:
		return u.Department == "" || u.Department == requester.Department
	}
	return false
}

// AssignableTargets returns the users requester may assign a task to,
// preserving the order of users
func AssignableTargets(requester *models.User, users []models.User) []models.User {
	if requester == nil {
		return nil
	}
	if requester.Role == models.RoleEmployee || requester.Role == "" {
		return []models.User{*requester}
	}
	var out []models.User
	for i := range users {
		if CanAssign(requester, &users[i]) {
			out = append(out, users[i])
		}
	}
	return out
}

// CanAssign reports whether requester may create a task for target
func CanAssign(requester, target *models.User) bool {
	if requester == nil || target == nil {
		return false
	}
	if requester.Role == models.RoleEmployee {
		return requester.ID == target.ID
	}
	return InScope(requester, target)
}

// CanSeeTask reports whether requester may see t. users resolves the
// assignee; an unknown assignee is out of every manager's scope.
func CanSeeTask(requester *models.User, t *models.Task, users map[int64]*models.User) bool {
	if requester == nil || t == nil {
		return false
	}
	if t.Involves(requester.ID) {
		return true
	}
	switch requester.Role {
	case models.RoleDirector:
		return true
	case models.RoleManager:
		return InScope(requester, users[t.AssigneeID])
	}
	return false
}

// VisibleTasks filters tasks down to those requester may see, keeping order
func VisibleTasks(requester *models.User, tasks []models.Task, users []models.User) []models.Task {
	byID := Index(users)
	var out []models.Task
	for i := range tasks {
		if CanSeeTask(requester, &tasks[i], byID) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Index maps users by id
func Index(users []models.User) map[int64]*models.User {
	m := make(map[int64]*models.User, len(users))
	for i := range users {
		m[users[i].ID] = &users[i]
	}
	return m
}
