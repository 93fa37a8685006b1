package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/domain"
	apperrors "github.com/spec-kit/workspace-service/pkg/util/errorutil"
)

type fakeDirectory struct {
	users map[string]*domain.User
	roles map[string][]domain.Role
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (*domain.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (d *fakeDirectory) GetRoles(_ context.Context, userID string) ([]domain.Role, error) {
	return d.roles[userID], nil
}

func newGateApp(t *testing.T) (*fiber.App, *TokenManager, *fakeDirectory) {
	t.Helper()

	tm := newTestManager(t, SystemClock())
	directory := &fakeDirectory{
		users: map[string]*domain.User{},
		roles: map[string][]domain.Role{},
	}
	gate := NewGate(tm, directory, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		},
	})
	app.Get("/tasks", gate.Authenticate(), gate.Require(ModeAll, domain.PermTasksRead), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"subject": principal.User.ID})
	})
	app.Get("/either", gate.Authenticate(), gate.Require(ModeAny, domain.PermTasksRead, domain.PermIdeasRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app, tm, directory
}

func requestStatus(t *testing.T, app *fiber.App, token string, path string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestGateRejectsMissingAndBadTokens(t *testing.T) {
	t.Parallel()

	app, tm, directory := newGateApp(t)
	directory.users["u1"] = &domain.User{ID: "u1", Status: domain.UserStatusActive}

	require.Equal(t, fiber.StatusUnauthorized, requestStatus(t, app, "", "/tasks"))
	require.Equal(t, fiber.StatusUnauthorized, requestStatus(t, app, "not-a-token", "/tasks"))

	// A refresh token is never accepted where an access token is expected.
	refresh, _, err := tm.Issue("u1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, requestStatus(t, app, refresh, "/tasks"))
}

func TestGateRejectsUnknownAndInactiveSubjects(t *testing.T) {
	t.Parallel()

	app, tm, directory := newGateApp(t)

	ghost, _, err := tm.Issue("ghost", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, requestStatus(t, app, ghost, "/tasks"))

	directory.users["u2"] = &domain.User{ID: "u2", Status: domain.UserStatusSuspended}
	directory.roles["u2"] = []domain.Role{{Name: "viewer", Permissions: []domain.Permission{domain.PermTasksRead}}}
	suspended, _, err := tm.Issue("u2", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	// A valid token does not help a suspended account.
	require.Equal(t, fiber.StatusUnauthorized, requestStatus(t, app, suspended, "/tasks"))
}

func TestGateEnforcesPermissions(t *testing.T) {
	t.Parallel()

	app, tm, directory := newGateApp(t)
	directory.users["u3"] = &domain.User{ID: "u3", Status: domain.UserStatusActive}
	directory.roles["u3"] = []domain.Role{{Name: "ideas", Permissions: []domain.Permission{domain.PermIdeasRead}}}

	token, _, err := tm.Issue("u3", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	// Authenticated but lacking tasks:read is a 403, not a 401.
	require.Equal(t, fiber.StatusForbidden, requestStatus(t, app, token, "/tasks"))

	// ModeAny passes with either capability.
	require.Equal(t, fiber.StatusOK, requestStatus(t, app, token, "/either"))

	directory.roles["u3"] = append(directory.roles["u3"], domain.Role{
		Name:        "viewer",
		Permissions: []domain.Permission{domain.PermTasksRead},
	})
	require.Equal(t, fiber.StatusOK, requestStatus(t, app, token, "/tasks"))
}
