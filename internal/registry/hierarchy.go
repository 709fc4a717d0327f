package registry

import (
	"context"
	"fmt"

	"github.com/marcus/taskbot/internal/models"
)

// ListSubordinates returns every user whose superior chain leads to id,
// at any depth. Cycles and dangling superior links are tolerated: the walk
// visits each user at most once and never includes id itself.
func (r *Registry) ListSubordinates(ctx context.Context, id int64) ([]models.User, error) {
	all, err := r.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return Subordinates(all, id), nil
}

// IsSubordinateOf reports whether a reports to b, directly or transitively.
// Returns false on cycles, dangling links, and lookup errors.
func (r *Registry) IsSubordinateOf(ctx context.Context, a, b int64) bool {
	all, err := r.users.ListUsers(ctx)
	if err != nil {
		return false
	}
	return IsSubordinate(all, a, b)
}

// Subordinates walks the superior links in users downward from root
func Subordinates(users []models.User, root int64) []models.User {
	children := make(map[int64][]int, len(users))
	for i := range users {
		if users[i].SuperiorID != 0 {
			children[users[i].SuperiorID] = append(children[users[i].SuperiorID], i)
		}
	}

	visited := map[int64]bool{root: true}
	var result []models.User
	queue := []int64{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, idx := range children[cur] {
			u := users[idx]
			if visited[u.ID] {
				continue
			}
			visited[u.ID] = true
			result = append(result, u)
			queue = append(queue, u.ID)
		}
	}
	return result
}

// IsSubordinate walks a's superior chain upward looking for b
func IsSubordinate(users []models.User, a, b int64) bool {
	if a == b {
		return false
	}
	byID := make(map[int64]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	visited := make(map[int64]bool)
	cur := a
	for {
		if visited[cur] {
			return false
		}
		visited[cur] = true

		u, ok := byID[cur]
		if !ok || u.SuperiorID == 0 {
			return false
		}
		if u.SuperiorID == b {
			return true
		}
		cur = u.SuperiorID
	}
}
