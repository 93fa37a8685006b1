package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/dto"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/service"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

// IdeasHandler manages idea endpoints.
type IdeasHandler struct {
	service *service.IdeaService
}

// NewIdeasHandler constructs handler.
func NewIdeasHandler(ideaService *service.IdeaService) *IdeasHandler {
	return &IdeasHandler{service: ideaService}
}

// Create POST /ideas.
func (h *IdeasHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.IdeaCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProjectID == "" || strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("project_id, title required", nil)
	}

	idea, err := h.service.Create(c.UserContext(), principal.User.ID, req.ProjectID, req.Title, req.Body, req.Tags)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ideaResponse(idea)})
}

// List GET /ideas?project_id=...
func (h *IdeasHandler) List(c *fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return apperrors.NewValidationError("project_id required", nil)
	}
	limit, offset := parsePagination(c)
	ideas, err := h.service.ListByProject(c.UserContext(), projectID, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.IdeaResponse, 0, len(ideas))
	for i := range ideas {
		items = append(items, ideaResponse(&ideas[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /ideas/:id.
func (h *IdeasHandler) Get(c *fiber.Ctx) error {
	idea, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ideaResponse(idea)})
}

// Update PUT /ideas/:id.
func (h *IdeasHandler) Update(c *fiber.Ctx) error {
	var req dto.IdeaUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}

	idea, err := h.service.Update(c.UserContext(), c.Params("id"), req.Title, req.Body, req.Tags)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ideaResponse(idea)})
}

// Delete DELETE /ideas/:id.
func (h *IdeasHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Suggest POST /ideas/:id/suggest.
func (h *IdeasHandler) Suggest(c *fiber.Ctx) error {
	suggestion, err := h.service.Suggest(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrSuggestionsDisabled) {
			return apperrors.NewDomainError("SUGGESTIONS_DISABLED", "idea suggestions are not enabled", fiber.StatusNotImplemented, nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.IdeaSuggestionResponse{IdeaID: c.Params("id"), Suggestion: suggestion}})
}

func ideaResponse(idea *domain.Idea) dto.IdeaResponse {
	tags := idea.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.IdeaResponse{
		ID:        idea.ID,
		ProjectID: idea.ProjectID,
		AuthorID:  idea.AuthorID,
		Title:     idea.Title,
		Body:      idea.Body,
		Tags:      tags,
		CreatedAt: idea.CreatedAt,
		UpdatedAt: idea.UpdatedAt,
	}
}
