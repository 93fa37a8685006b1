package dto

import "time"

// IdeaResponse is the external idea representation.
type IdeaResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdeaCreateRequest payload for idea creation.
type IdeaCreateRequest struct {
	ProjectID string   `json:"project_id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
}

// IdeaUpdateRequest payload for idea updates.
type IdeaUpdateRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// IdeaSuggestionResponse carries a generated elaboration for an idea.
type IdeaSuggestionResponse struct {
	IdeaID     string `json:"idea_id"`
	Suggestion string `json:"suggestion"`
}
