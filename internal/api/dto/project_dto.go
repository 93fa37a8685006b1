package dto

import "time"

// ProjectResponse is the external project representation.
type ProjectResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectCreateRequest payload for project creation.
type ProjectCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectUpdateRequest payload for project updates.
type ProjectUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}
