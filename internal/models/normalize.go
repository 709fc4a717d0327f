package models

import (
	"strconv"
	"strings"
)

// NormalizeRole maps user input and legacy role names onto a Role.
// "chief" was the top role in early versions of the bot.
func NormalizeRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee", "staff", "worker":
		return RoleEmployee
	case "manager":
		return RoleManager
	case "director", "chief", "boss":
		return RoleDirector
	}
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// IsValidRole checks if a role is one of the known roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleEmployee, RoleManager, RoleDirector:
		return true
	}
	return false
}

// AllRoles returns roles from lowest to highest
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleDirector}
}

// IsValidStatus checks if a status is known
func IsValidStatus(s Status) bool {
	return s == StatusNew || s == StatusDone
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
