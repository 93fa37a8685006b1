package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/dto"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/repository"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

// UsersHandler manages administrative user endpoints.
type UsersHandler struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	hasher *auth.Hasher
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository, roles repository.RoleRepository, hasher *auth.Hasher) *UsersHandler {
	return &UsersHandler{users: users, roles: roles, hasher: hasher}
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	users, err := h.users.List(c.UserContext(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	now := time.Now().UTC()
	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.Create(c.UserContext(), user); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Update PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Status != nil {
		status := domain.UserStatus(*req.Status)
		if status != domain.UserStatusActive && status != domain.UserStatusSuspended {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *req.Status})
		}
		user.Status = status
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.users.Update(c.UserContext(), user); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Delete DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignRole POST /users/:id/roles.
func (h *UsersHandler) AssignRole(c *fiber.Ctx) error {
	var req dto.AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RoleID == "" {
		return apperrors.NewValidationError("role_id required", nil)
	}

	userID := c.Params("id")
	if _, err := h.users.GetByID(c.UserContext(), userID); err != nil {
		return apperrors.MapError(err)
	}
	if _, err := h.roles.GetByID(c.UserContext(), req.RoleID); err != nil {
		return apperrors.MapError(err)
	}
	if err := h.roles.AssignToUser(c.UserContext(), userID, req.RoleID); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"assigned": true}})
}

// RemoveRole DELETE /users/:id/roles/:roleId.
func (h *UsersHandler) RemoveRole(c *fiber.Ctx) error {
	if err := h.roles.RemoveFromUser(c.UserContext(), c.Params("id"), c.Params("roleId")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListRoles GET /users/:id/roles.
func (h *UsersHandler) ListRoles(c *fiber.Ctx) error {
	userID := c.Params("id")
	if _, err := h.users.GetByID(c.UserContext(), userID); err != nil {
		return apperrors.MapError(err)
	}
	roles, err := h.roles.ListByUser(c.UserContext(), userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, roleResponse(&roles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func parsePagination(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
