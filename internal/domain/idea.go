package domain

import "time"

// Idea captures a free-form proposal attached to a project.
type Idea struct {
	ID        string
	ProjectID string
	AuthorID  string
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
