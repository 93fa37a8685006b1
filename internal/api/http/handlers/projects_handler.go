package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/dto"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/service"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

// ProjectsHandler manages project endpoints.
type ProjectsHandler struct {
	service *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projectService *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{service: projectService}
}

// Create POST /projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.ProjectCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	project, err := h.service.Create(c.UserContext(), principal.User.ID, req.Name, req.Description)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": projectResponse(project)})
}

// List GET /projects. Scoped to the caller's own projects.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	limit, offset := parsePagination(c)
	projects, err := h.service.ListByOwner(c.UserContext(), principal.User.ID, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, projectResponse(&projects[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	project, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": projectResponse(project)})
}

// Update PUT /projects/:id.
func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	var req dto.ProjectUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	status := domain.ProjectStatus(req.Status)
	if status == "" {
		status = domain.ProjectStatusActive
	}
	if status != domain.ProjectStatusActive && status != domain.ProjectStatusArchived {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": req.Status})
	}

	project, err := h.service.Update(c.UserContext(), c.Params("id"), req.Name, req.Description, status)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": projectResponse(project)})
}

// Delete DELETE /projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func projectResponse(project *domain.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:          project.ID,
		OwnerID:     project.OwnerID,
		Name:        project.Name,
		Description: project.Description,
		Status:      string(project.Status),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}
