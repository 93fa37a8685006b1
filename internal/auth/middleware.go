package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/domain"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Externally every authentication failure looks the same. The internal kind
// is logged and counted but never leaks to the client.
const unauthorizedMessage = "unauthorized"

// UserDirectory is the read path into account status and role assignments,
// supplied by the persistence layer.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetRoles(ctx context.Context, userID string) ([]domain.Role, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Roles  []domain.Role
	Claims *Claims
}

// RequireMode selects how multiple required permissions combine.
type RequireMode int

const (
	ModeAll RequireMode = iota
	ModeAny
)

// Gate authenticates bearer tokens and enforces per-route capabilities.
type Gate struct {
	tokens    *TokenManager
	directory UserDirectory
	logger    *zap.Logger
}

// NewGate constructs the access gate middleware.
func NewGate(tokens *TokenManager, directory UserDirectory, logger *zap.Logger) *Gate {
	return &Gate{tokens: tokens, directory: directory, logger: logger}
}

// Authenticate validates the bearer access token, verifies the account is
// active, resolves its roles and attaches the principal to the request.
func (g *Gate) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return apperrors.NewUnauthorized(unauthorizedMessage)
		}

		claims, err := g.tokens.Decode(raw, domain.TokenTypeAccess)
		if err != nil {
			g.logger.Debug("access token rejected", zap.Error(err))
			return apperrors.NewUnauthorized(unauthorizedMessage)
		}

		user, err := g.directory.GetUser(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized(unauthorizedMessage)
			}
			return apperrors.MapError(err)
		}
		if !user.IsActive() {
			g.logger.Debug("inactive account rejected", zap.String("user_id", user.ID))
			return apperrors.NewUnauthorized(unauthorizedMessage)
		}

		roles, err := g.directory.GetRoles(c.UserContext(), user.ID)
		if err != nil {
			return apperrors.MapError(err)
		}

		c.Locals(principalKey, &Principal{User: user, Roles: roles, Claims: claims})
		return c.Next()
	}
}

// Require gates a route on declared capabilities. It must run after
// Authenticate. Permission denial is 403: the caller is already known.
func (g *Gate) Require(mode RequireMode, required ...domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(unauthorizedMessage)
		}

		allowed := false
		switch mode {
		case ModeAny:
			allowed = HasAny(principal.Roles, required...)
		default:
			allowed = HasAll(principal.Roles, required...)
		}
		if !allowed {
			return apperrors.NewForbidden("forbidden")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
