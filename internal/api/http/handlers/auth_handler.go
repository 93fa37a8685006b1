package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/dto"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/observability"
	"github.com/spec-kit/workspace-service/internal/ratelimit"
	"github.com/spec-kit/workspace-service/internal/service"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

// AuthHandler serves registration, login and token lifecycle endpoints.
type AuthHandler struct {
	tokens         *service.TokenService
	accounts       *service.AccountService
	loginLimiter   ratelimit.Limiter
	refreshLimiter ratelimit.Limiter
	metrics        *observability.Metrics
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *service.TokenService, accounts *service.AccountService, loginLimiter, refreshLimiter ratelimit.Limiter, metrics *observability.Metrics) *AuthHandler {
	if loginLimiter == nil {
		loginLimiter = ratelimit.Unlimited{}
	}
	if refreshLimiter == nil {
		refreshLimiter = ratelimit.Unlimited{}
	}
	return &AuthHandler{
		tokens:         tokens,
		accounts:       accounts,
		loginLimiter:   loginLimiter,
		refreshLimiter: refreshLimiter,
		metrics:        metrics,
	}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	user, pair, err := h.accounts.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"user":   userResponse(user),
		"tokens": tokenPairResponse(pair),
	}})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if err := h.allow(c, h.loginLimiter); err != nil {
		return err
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email, password required", nil)
	}

	user, pair, err := h.tokens.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user":   userResponse(user),
		"tokens": tokenPairResponse(pair),
	}})
}

// Refresh POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	if err := h.allow(c, h.refreshLimiter); err != nil {
		return err
	}
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token required", nil)
	}

	pair, err := h.tokens.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"tokens": tokenPairResponse(pair)}})
}

// Logout POST /auth/logout. Succeeds even when the token is already dead.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token required", nil)
	}

	if err := h.tokens.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// LogoutAll POST /auth/logout/all. Revokes every session of the caller.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	count, err := h.tokens.RevokeAll(c.UserContext(), principal.User.ID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.RevokedResponse{RevokedSessions: count}})
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password, new_password required", nil)
	}

	if err := h.accounts.ChangePassword(c.UserContext(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

// RequestPasswordReset POST /auth/password/reset/request. Always answers the
// same way so callers cannot probe which emails exist.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	if err := h.accounts.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"requested": true}})
}

// ConfirmPasswordReset POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token, new_password required", nil)
	}

	if err := h.accounts.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reset": true}})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("unauthorized")
	}
	permissions := auth.EffectivePermissions(principal.Roles)
	permNames := make([]string, 0, len(permissions))
	for p := range permissions {
		permNames = append(permNames, string(p))
	}
	sort.Strings(permNames)
	roles := make([]string, 0, len(principal.Roles))
	for i := range principal.Roles {
		roles = append(roles, principal.Roles[i].Name)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user":        userResponse(principal.User),
		"roles":       roles,
		"permissions": permNames,
	}})
}

func (h *AuthHandler) allow(c *fiber.Ctx, limiter ratelimit.Limiter) error {
	ok, _ := limiter.Allow(c.UserContext(), c.IP())
	if !ok {
		return apperrors.NewDomainError("RATE_LIMITED", "too many requests", fiber.StatusTooManyRequests, nil)
	}
	return nil
}

// mapError collapses authentication failures into one uniform 401 and keeps
// permission and availability failures distinct.
func (h *AuthHandler) mapError(err error) error {
	switch {
	case auth.IsAuthenticationError(err):
		if h.metrics != nil {
			h.metrics.RecordAuthFailure(authFailureKind(err))
		}
		return apperrors.NewUnauthorized("unauthorized")
	case errors.Is(err, auth.ErrPermissionDenied):
		return apperrors.NewForbidden("forbidden")
	case errors.Is(err, auth.ErrStoreUnavailable):
		return apperrors.NewUnavailable("service temporarily unavailable", err)
	default:
		return err
	}
}

func authFailureKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_token_type"
	case errors.Is(err, auth.ErrTokenRevokedOrExpired):
		return "revoked_or_expired"
	case errors.Is(err, auth.ErrAccountInactive):
		return "account_inactive"
	default:
		return "other"
	}
}

func tokenPairResponse(pair *service.TokenPair) dto.TokenPairResponse {
	return dto.TokenPairResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}
