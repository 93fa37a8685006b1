package dto

import "time"

// UserResponse is the external user representation.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCreateRequest payload for administrative user creation.
type UserCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdateRequest payload for partial user updates.
type UserUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Status *string `json:"status"`
}

// AssignRoleRequest attaches a role to a user.
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}
