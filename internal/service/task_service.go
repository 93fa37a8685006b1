package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/repository"
)

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Priority    domain.TaskPriority
	AssigneeID  *string
	DueAt       *time.Time
}

// TaskUpdateInput describes mutable task fields.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssigneeID  *string
	DueAt       *time.Time
}

// TaskService coordinates task workflows.
type TaskService struct {
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	dispatcher events.Dispatcher
}

// NewTaskService constructs the service.
func NewTaskService(tasks repository.TaskRepository, projects repository.ProjectRepository, dispatcher events.Dispatcher) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, dispatcher: dispatcher}
}

// Create adds a task to an active project.
func (s *TaskService) Create(ctx context.Context, actorID string, input TaskCreateInput) (*domain.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("task title required")
	}

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.ProjectStatusActive {
		return nil, errors.New("project archived")
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}

	task := &domain.Task{
		ProjectID:   input.ProjectID,
		AssigneeID:  input.AssigneeID,
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TaskStatusOpen,
		Priority:    priority,
		DueAt:       input.DueAt,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if task.AssigneeID != nil {
		s.publishAssigned(ctx, actorID, task)
	}
	return task, nil
}

// Update applies partial changes to a task.
func (s *TaskService) Update(ctx context.Context, actorID, id string, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	assigneeChanged := false
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.AssigneeID != nil {
		assigneeChanged = task.AssigneeID == nil || *task.AssigneeID != *input.AssigneeID
		task.AssigneeID = input.AssigneeID
	}
	if input.DueAt != nil {
		task.DueAt = input.DueAt
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	if assigneeChanged {
		s.publishAssigned(ctx, actorID, task)
	}
	return task, nil
}

// Get fetches a task by id.
func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.tasks.Delete(ctx, id)
}

// List pages through project tasks.
func (s *TaskService) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return s.tasks.ListWithFilter(ctx, filter)
}

func (s *TaskService) publishAssigned(ctx context.Context, actorID string, task *domain.Task) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTaskAssigned,
		SubjectID: actorID,
		Timestamp: time.Now(),
		Payload: events.TaskAssignedPayload{
			TaskID:     task.ID,
			ProjectID:  task.ProjectID,
			AssigneeID: task.AssigneeID,
		},
	})
}
