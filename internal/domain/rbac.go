package domain

import "time"

// Permission is an atomic capability name, globally unique.
type Permission string

// Common capability names used by route declarations.
const (
	PermUsersRead     Permission = "users:read"
	PermUsersWrite    Permission = "users:write"
	PermRolesRead     Permission = "roles:read"
	PermRolesWrite    Permission = "roles:write"
	PermProjectsRead  Permission = "projects:read"
	PermProjectsWrite Permission = "projects:write"
	PermTasksRead     Permission = "tasks:read"
	PermTasksWrite    Permission = "tasks:write"
	PermIdeasRead     Permission = "ideas:read"
	PermIdeasWrite    Permission = "ideas:write"
)

// Role groups permissions; roles carry no hierarchy of their own.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission reports whether the role grants the capability directly.
func (r *Role) HasPermission(p Permission) bool {
	for _, granted := range r.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
