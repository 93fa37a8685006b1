package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workspace-service/internal/domain"
)

func rolesFixture() []domain.Role {
	return []domain.Role{
		{Name: "viewer", Permissions: []domain.Permission{domain.PermProjectsRead, domain.PermTasksRead}},
		{Name: "editor", Permissions: []domain.Permission{domain.PermTasksWrite}},
	}
}

func TestEffectivePermissionsUnion(t *testing.T) {
	t.Parallel()

	effective := EffectivePermissions(rolesFixture())
	require.Len(t, effective, 3)
	require.Contains(t, effective, domain.PermProjectsRead)
	require.Contains(t, effective, domain.PermTasksRead)
	require.Contains(t, effective, domain.PermTasksWrite)
}

func TestHasPermission(t *testing.T) {
	t.Parallel()

	roles := rolesFixture()
	require.True(t, HasPermission(roles, domain.PermProjectsRead))
	require.True(t, HasPermission(roles, domain.PermTasksWrite))
	require.False(t, HasPermission(roles, domain.PermProjectsWrite))
	require.False(t, HasPermission(nil, domain.PermProjectsRead))
}

func TestHasAny(t *testing.T) {
	t.Parallel()

	roles := rolesFixture()
	require.True(t, HasAny(roles, domain.PermTasksWrite, domain.PermUsersWrite))
	require.False(t, HasAny(roles, domain.PermUsersWrite, domain.PermRolesWrite))

	// Empty requirement is trivially satisfied.
	require.True(t, HasAny(roles))
	require.True(t, HasAny(nil))
}

func TestHasAll(t *testing.T) {
	t.Parallel()

	roles := rolesFixture()
	require.True(t, HasAll(roles, domain.PermProjectsRead, domain.PermTasksWrite))
	require.False(t, HasAll(roles, domain.PermProjectsRead, domain.PermProjectsWrite))
	require.True(t, HasAll(roles))
	require.False(t, HasAll(nil, domain.PermTasksRead))
}

func TestAddingRoleNeverRemovesPermissions(t *testing.T) {
	t.Parallel()

	roles := rolesFixture()
	before := EffectivePermissions(roles)

	extended := append(roles, domain.Role{Name: "admin", Permissions: []domain.Permission{domain.PermUsersWrite}})
	after := EffectivePermissions(extended)

	for perm := range before {
		require.Contains(t, after, perm)
	}
	require.Contains(t, after, domain.PermUsersWrite)
}
