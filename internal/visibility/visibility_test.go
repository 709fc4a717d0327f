package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/taskbot/internal/models"
)

var (
	director  = models.User{ID: 1, Name: "Dina", Role: models.RoleDirector}
	salesMgr  = models.User{ID: 2, Name: "Sam", Role: models.RoleManager, Department: "sales"}
	opsMgr    = models.User{ID: 3, Name: "Olga", Role: models.RoleManager, Department: "ops"}
	salesEmp  = models.User{ID: 4, Name: "Eve", Role: models.RoleEmployee, Department: "sales"}
	opsEmp    = models.User{ID: 5, Name: "Oleg", Role: models.RoleEmployee, Department: "ops"}
	poolEmp   = models.User{ID: 6, Name: "Pavel", Role: models.RoleEmployee}
	everybody = []models.User{director, salesMgr, opsMgr, salesEmp, opsEmp, poolEmp}
)

func userIDs(users []models.User) []int64 {
	var out []int64
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestAssignableTargets(t *testing.T) {
	tests := []struct {
		name      string
		requester models.User
		want      []int64
	}{
		{"employee assigns only self", salesEmp, []int64{4}},
		{"pool employee assigns only self", poolEmp, []int64{6}},
		{"manager gets department and pool", salesMgr, []int64{1, 2, 4, 6}},
		{"other manager shares the pool", opsMgr, []int64{1, 3, 5, 6}},
		{"director gets everyone", director, []int64{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.requester
			assert.Equal(t, tt.want, userIDs(AssignableTargets(&r, everybody)))
		})
	}
}

func TestDirectorWithDepartmentLeavesThePool(t *testing.T) {
	board := director
	board.Department = "board"
	users := []models.User{board, salesMgr, opsMgr, salesEmp, opsEmp, poolEmp}

	assert.Equal(t, []int64{2, 4, 6}, userIDs(AssignableTargets(&salesMgr, users)))
	assert.True(t, InScope(&salesMgr, &director), "no department means pool")
	assert.False(t, InScope(&salesMgr, &board))
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(&salesEmp, &salesEmp))
	assert.False(t, CanAssign(&salesEmp, &salesMgr))
	assert.True(t, CanAssign(&salesMgr, &poolEmp))
	assert.False(t, CanAssign(&salesMgr, &opsEmp))
	assert.True(t, CanAssign(&director, &opsEmp))
	assert.False(t, CanAssign(nil, &opsEmp))
	assert.False(t, CanAssign(&director, nil))
}

func TestCanSeeTask(t *testing.T) {
	users := Index(everybody)
	tasks := map[string]models.Task{
		"sales":   {ID: 1, CreatorID: salesMgr.ID, AssigneeID: salesEmp.ID},
		"ops":     {ID: 2, CreatorID: opsMgr.ID, AssigneeID: opsEmp.ID},
		"pool":    {ID: 3, CreatorID: director.ID, AssigneeID: poolEmp.ID},
		"self":    {ID: 4, CreatorID: opsEmp.ID, AssigneeID: opsEmp.ID},
		"toMgr":   {ID: 5, CreatorID: director.ID, AssigneeID: opsMgr.ID},
		"unknown": {ID: 6, CreatorID: director.ID, AssigneeID: 404},
	}

	tests := []struct {
		requester models.User
		task      string
		want      bool
	}{
		{salesEmp, "sales", true},
		{salesEmp, "ops", false},
		{salesEmp, "pool", false},
		{opsEmp, "self", true},
		{salesMgr, "sales", true},
		{salesMgr, "ops", false},
		{salesMgr, "pool", true},
		{opsMgr, "pool", true},
		{opsMgr, "self", true},
		{opsMgr, "toMgr", true},
		{salesMgr, "toMgr", false},
		{salesMgr, "unknown", false},
		{director, "ops", true},
		{director, "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.requester.Name+"/"+tt.task, func(t *testing.T) {
			r := tt.requester
			task := tasks[tt.task]
			assert.Equal(t, tt.want, CanSeeTask(&r, &task, users))
		})
	}
}

func TestVisibleTasksCreatorAndAssigneeAlwaysSee(t *testing.T) {
	// Cross-department assignment made by a director
	task := models.Task{ID: 9, CreatorID: salesEmp.ID, AssigneeID: opsEmp.ID}

	for _, u := range []models.User{salesEmp, opsEmp} {
		got := VisibleTasks(&u, []models.Task{task}, everybody)
		require.Len(t, got, 1, "user %d", u.ID)
	}
}

func TestVisibleTasksKeepsOrder(t *testing.T) {
	tasks := []models.Task{
		{ID: 3, CreatorID: director.ID, AssigneeID: poolEmp.ID},
		{ID: 1, CreatorID: opsMgr.ID, AssigneeID: opsEmp.ID},
		{ID: 2, CreatorID: salesMgr.ID, AssigneeID: salesEmp.ID},
	}

	got := VisibleTasks(&salesMgr, tasks, everybody)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestInScope(t *testing.T) {
	assert.True(t, InScope(&salesMgr, &salesMgr))
	assert.True(t, InScope(&salesEmp, &salesEmp))
	assert.False(t, InScope(&salesEmp, &poolEmp))
	assert.True(t, InScope(&opsMgr, &poolEmp))
	assert.False(t, InScope(&opsMgr, &salesMgr))
	assert.True(t, InScope(&director, &salesMgr))
	assert.False(t, InScope(&director, nil))
}
