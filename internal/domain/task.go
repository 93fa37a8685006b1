package domain

import "time"

// TaskStatus enumerates task workflow states.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskPriority enumerates task urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Task is a unit of work within a project.
type Task struct {
	ID          string
	ProjectID   string
	AssigneeID  *string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
