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

// ProjectService coordinates project workflows.
type ProjectService struct {
	projects   repository.ProjectRepository
	dispatcher events.Dispatcher
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository, dispatcher events.Dispatcher) *ProjectService {
	return &ProjectService{projects: projects, dispatcher: dispatcher}
}

// Create creates a project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, ownerID, name, description string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("project name required")
	}

	project := &domain.Project{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Status:      domain.ProjectStatusActive,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventProjectCreated,
			SubjectID: ownerID,
			Timestamp: time.Now(),
			Payload: events.ProjectCreatedPayload{
				ProjectID: project.ID,
				Name:      project.Name,
			},
		})
	}
	return project, nil
}

// Update modifies name, description or status.
func (s *ProjectService) Update(ctx context.Context, id, name, description string, status domain.ProjectStatus) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		project.Name = name
	}
	if description != "" {
		project.Description = description
	}
	if status != "" {
		project.Status = status
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get fetches a project by id.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.projects.Delete(ctx, id)
}

// ListByOwner pages through the caller's projects.
func (s *ProjectService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Project, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.projects.ListByOwner(ctx, ownerID, limit, offset)
}
