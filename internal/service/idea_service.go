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

// ErrSuggestionsDisabled is returned when no completion provider is wired.
var ErrSuggestionsDisabled = errors.New("idea suggestions disabled")

// CompletionProvider is the LLM collaborator used to expand an idea into
// follow-up suggestions. The integration itself is external to this service.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IdeaService coordinates idea workflows.
type IdeaService struct {
	ideas       repository.IdeaRepository
	projects    repository.ProjectRepository
	completions CompletionProvider
	dispatcher  events.Dispatcher
}

// NewIdeaService constructs the service. completions may be nil.
func NewIdeaService(ideas repository.IdeaRepository, projects repository.ProjectRepository, completions CompletionProvider, dispatcher events.Dispatcher) *IdeaService {
	return &IdeaService{ideas: ideas, projects: projects, completions: completions, dispatcher: dispatcher}
}

// Create records an idea against a project.
func (s *IdeaService) Create(ctx context.Context, authorID string, projectID, title, body string, tags []string) (*domain.Idea, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("idea title required")
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	idea := &domain.Idea{
		ProjectID: projectID,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		Tags:      tags,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventIdeaCreated,
			SubjectID: authorID,
			Timestamp: time.Now(),
			Payload: events.IdeaCreatedPayload{
				IdeaID:    idea.ID,
				ProjectID: idea.ProjectID,
				Title:     idea.Title,
			},
		})
	}
	return idea, nil
}

// Update modifies title, body or tags.
func (s *IdeaService) Update(ctx context.Context, id, title, body string, tags []string) (*domain.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		idea.Title = title
	}
	if body != "" {
		idea.Body = body
	}
	if tags != nil {
		idea.Tags = tags
	}
	if err := s.ideas.Update(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

// Get fetches an idea by id.
func (s *IdeaService) Get(ctx context.Context, id string) (*domain.Idea, error) {
	return s.ideas.GetByID(ctx, id)
}

// Delete removes an idea.
func (s *IdeaService) Delete(ctx context.Context, id string) error {
	return s.ideas.Delete(ctx, id)
}

// ListByProject pages through a project's ideas.
func (s *IdeaService) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Idea, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ideas.ListByProject(ctx, projectID, limit, offset)
}

// Suggest asks the completion provider for follow-up thoughts on an idea.
func (s *IdeaService) Suggest(ctx context.Context, id string) (string, error) {
	if s.completions == nil {
		return "", ErrSuggestionsDisabled
	}
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	prompt := "Suggest next steps for the following idea.\nTitle: " + idea.Title + "\n" + idea.Body
	return s.completions.Complete(ctx, prompt)
}
