package repository

import (
	"context"

	"github.com/spec-kit/workspace-service/internal/domain"
)

// UserDirectory bundles the account/role read path consumed by the access
// gate and the token service.
type UserDirectory struct {
	users UserRepository
	roles RoleRepository
}

// NewUserDirectory constructs the directory facade.
func NewUserDirectory(users UserRepository, roles RoleRepository) *UserDirectory {
	return &UserDirectory{users: users, roles: roles}
}

// GetUser resolves an account by id.
func (d *UserDirectory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return d.users.GetByID(ctx, id)
}

// GetRoles resolves the role set assigned to an account.
func (d *UserDirectory) GetRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	return d.roles.ListByUser(ctx, userID)
}
