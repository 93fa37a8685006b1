package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workspace-service/internal/domain"
)

// IdeaRepository encapsulates idea persistence.
type IdeaRepository interface {
	Create(ctx context.Context, idea *domain.Idea) error
	Update(ctx context.Context, idea *domain.Idea) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Idea, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Idea, error)
}

type ideaRepository struct {
	pool *pgxpool.Pool
}

// NewIdeaRepository instantiates repository.
func NewIdeaRepository(pool *pgxpool.Pool) IdeaRepository {
	return &ideaRepository{pool: pool}
}

func (r *ideaRepository) Create(ctx context.Context, idea *domain.Idea) error {
	const query = `
        INSERT INTO ideas (project_id, author_id, title, body, tags)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		idea.ProjectID,
		idea.AuthorID,
		idea.Title,
		idea.Body,
		idea.Tags,
	).Scan(&idea.ID, &idea.CreatedAt, &idea.UpdatedAt)
}

func (r *ideaRepository) Update(ctx context.Context, idea *domain.Idea) error {
	const query = `
        UPDATE ideas SET title=$1, body=$2, tags=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		idea.Title,
		idea.Body,
		idea.Tags,
		idea.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ideaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM ideas WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ideaRepository) GetByID(ctx context.Context, id string) (*domain.Idea, error) {
	const query = `
        SELECT id, project_id, author_id, title, body, tags, created_at, updated_at
        FROM ideas WHERE id=$1`
	var idea domain.Idea
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&idea.ID,
		&idea.ProjectID,
		&idea.AuthorID,
		&idea.Title,
		&idea.Body,
		&idea.Tags,
		&idea.CreatedAt,
		&idea.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &idea, nil
}

func (r *ideaRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Idea, error) {
	const query = `
        SELECT id, project_id, author_id, title, body, tags, created_at, updated_at
        FROM ideas WHERE project_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []domain.Idea
	for rows.Next() {
		var idea domain.Idea
		if err := rows.Scan(
			&idea.ID,
			&idea.ProjectID,
			&idea.AuthorID,
			&idea.Title,
			&idea.Body,
			&idea.Tags,
			&idea.CreatedAt,
			&idea.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}
