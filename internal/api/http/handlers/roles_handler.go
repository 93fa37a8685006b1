package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/dto"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/repository"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

// RolesHandler manages role and permission registry endpoints.
type RolesHandler struct {
	roles       repository.RoleRepository
	permissions repository.PermissionRepository
}

// NewRolesHandler constructs handler.
func NewRolesHandler(roles repository.RoleRepository, permissions repository.PermissionRepository) *RolesHandler {
	return &RolesHandler{roles: roles, permissions: permissions}
}

// List GET /roles.
func (h *RolesHandler) List(c *fiber.Ctx) error {
	roles, err := h.roles.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, roleResponse(&roles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /roles/:id.
func (h *RolesHandler) Get(c *fiber.Ctx) error {
	role, err := h.roles.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}

// Create POST /roles.
func (h *RolesHandler) Create(c *fiber.Ctx) error {
	var req dto.RoleCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	now := time.Now().UTC()
	role := &domain.Role{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.roles.Create(c.UserContext(), role); err != nil {
		return apperrors.MapError(err)
	}
	for _, perm := range req.Permissions {
		if err := h.roles.AddPermission(c.UserContext(), role.ID, domain.Permission(perm)); err != nil {
			return apperrors.MapError(err)
		}
		role.Permissions = append(role.Permissions, domain.Permission(perm))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": roleResponse(role)})
}

// Update PATCH /roles/:id.
func (h *RolesHandler) Update(c *fiber.Ctx) error {
	var req dto.RoleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	role, err := h.roles.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	if req.Name != nil {
		role.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	role.UpdatedAt = time.Now().UTC()

	if err := h.roles.Update(c.UserContext(), role); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}

// Delete DELETE /roles/:id. Grants referencing the role go with it.
func (h *RolesHandler) Delete(c *fiber.Ctx) error {
	if err := h.roles.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GrantPermission POST /roles/:id/permissions.
func (h *RolesHandler) GrantPermission(c *fiber.Ctx) error {
	var req dto.GrantPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Permission == "" {
		return apperrors.NewValidationError("permission required", nil)
	}

	if _, err := h.roles.GetByID(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	if err := h.roles.AddPermission(c.UserContext(), c.Params("id"), domain.Permission(req.Permission)); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"granted": true}})
}

// RevokePermission DELETE /roles/:id/permissions/:permission.
func (h *RolesHandler) RevokePermission(c *fiber.Ctx) error {
	if err := h.roles.RemovePermission(c.UserContext(), c.Params("id"), domain.Permission(c.Params("permission"))); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPermissions GET /permissions.
func (h *RolesHandler) ListPermissions(c *fiber.Ctx) error {
	records, err := h.permissions.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.PermissionResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.PermissionResponse{Name: record.Name, Description: record.Description})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreatePermission POST /permissions.
func (h *RolesHandler) CreatePermission(c *fiber.Ctx) error {
	var req dto.PermissionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	record := &repository.PermissionRecord{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := h.permissions.Create(c.UserContext(), record); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.PermissionResponse{Name: record.Name, Description: record.Description}})
}

// DeletePermission DELETE /permissions/:name.
func (h *RolesHandler) DeletePermission(c *fiber.Ctx) error {
	if err := h.permissions.Delete(c.UserContext(), c.Params("name")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func roleResponse(role *domain.Role) dto.RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, string(p))
	}
	return dto.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}
