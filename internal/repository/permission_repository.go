package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionRecord is a registered capability name with its description.
type PermissionRecord struct {
	Name        string
	Description string
}

// PermissionRepository manages the capability registry.
type PermissionRepository interface {
	Create(ctx context.Context, perm *PermissionRecord) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]PermissionRecord, error)
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository returns a Postgres-backed implementation.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) Create(ctx context.Context, perm *PermissionRecord) error {
	const query = `
        INSERT INTO permissions (name, description)
        VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`

	_, err := r.pool.Exec(ctx, query, perm.Name, perm.Description)
	return err
}

func (r *permissionRepository) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM permissions WHERE name=$1`

	cmd, err := r.pool.Exec(ctx, query, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *permissionRepository) List(ctx context.Context) ([]PermissionRecord, error) {
	const query = `SELECT name, description FROM permissions ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []PermissionRecord
	for rows.Next() {
		var perm PermissionRecord
		if err := rows.Scan(&perm.Name, &perm.Description); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
