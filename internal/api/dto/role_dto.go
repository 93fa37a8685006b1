package dto

import "time"

// RoleResponse is the external role representation.
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleCreateRequest payload for role creation.
type RoleCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// RoleUpdateRequest payload for role updates.
type RoleUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GrantPermissionRequest attaches a permission to a role.
type GrantPermissionRequest struct {
	Permission string `json:"permission"`
}

// PermissionResponse is the external permission representation.
type PermissionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PermissionCreateRequest registers a permission name.
type PermissionCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
