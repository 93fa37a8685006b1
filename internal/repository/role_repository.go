package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workspace-service/internal/domain"
)

const roleSelect = `
        SELECT r.id, r.name, r.description,
               COALESCE(array_agg(rp.permission) FILTER (WHERE rp.permission IS NOT NULL), '{}'),
               r.created_at, r.updated_at
        FROM roles r
        LEFT JOIN role_permissions rp ON rp.role_id = r.id`

// RoleRepository manages roles, role-permission grants and user-role edges.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Role, error)
	AddPermission(ctx context.Context, roleID string, perm domain.Permission) error
	RemovePermission(ctx context.Context, roleID string, perm domain.Permission) error
	AssignToUser(ctx context.Context, userID, roleID string) error
	RemoveFromUser(ctx context.Context, userID, roleID string) error
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, role.Name, role.Description).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	const query = `
        UPDATE roles SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, role.Name, role.Description, role.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM roles WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	query := roleSelect + `
        WHERE r.id=$1
        GROUP BY r.id`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	query := roleSelect + `
        WHERE r.name=$1
        GROUP BY r.id`

	return r.scanOne(r.pool.QueryRow(ctx, query, name))
}

func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	query := roleSelect + `
        GROUP BY r.id
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *roleRepository) ListByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	query := roleSelect + `
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id=$1
        GROUP BY r.id
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *roleRepository) AddPermission(ctx context.Context, roleID string, perm domain.Permission) error {
	const query = `
        INSERT INTO role_permissions (role_id, permission)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING`

	_, err := r.pool.Exec(ctx, query, roleID, string(perm))
	return err
}

func (r *roleRepository) RemovePermission(ctx context.Context, roleID string, perm domain.Permission) error {
	const query = `
        DELETE FROM role_permissions WHERE role_id=$1 AND permission=$2`

	_, err := r.pool.Exec(ctx, query, roleID, string(perm))
	return err
}

func (r *roleRepository) AssignToUser(ctx context.Context, userID, roleID string) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING`

	_, err := r.pool.Exec(ctx, query, userID, roleID)
	return err
}

func (r *roleRepository) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	const query = `
        DELETE FROM user_roles WHERE user_id=$1 AND role_id=$2`

	_, err := r.pool.Exec(ctx, query, userID, roleID)
	return err
}

func (r *roleRepository) scanOne(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	var perms []string
	if err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&perms,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	role.Permissions = toPermissions(perms)
	return &role, nil
}

func (r *roleRepository) scanMany(rows pgx.Rows) ([]domain.Role, error) {
	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		var perms []string
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&perms,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		role.Permissions = toPermissions(perms)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func toPermissions(names []string) []domain.Permission {
	perms := make([]domain.Permission, 0, len(names))
	for _, name := range names {
		perms = append(perms, domain.Permission(name))
	}
	return perms
}
