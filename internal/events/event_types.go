package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordChanged        EventType = "password_changed"
	EventSessionFamilyRevoked   EventType = "session_family_revoked"
	EventProjectCreated         EventType = "project_created"
	EventTaskAssigned           EventType = "task_assigned"
	EventIdeaCreated            EventType = "idea_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PasswordResetRequestedPayload payload. The token travels only to the
// notification sink, never into a response body.
type PasswordResetRequestedPayload struct {
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SessionFamilyRevokedPayload payload.
type SessionFamilyRevokedPayload struct {
	Reason       string `json:"reason"`
	RevokedCount int64  `json:"revoked_count"`
}

// ProjectCreatedPayload payload.
type ProjectCreatedPayload struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	TaskID     string  `json:"task_id"`
	ProjectID  string  `json:"project_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// IdeaCreatedPayload payload.
type IdeaCreatedPayload struct {
	IdeaID    string `json:"idea_id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}
