package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workspace-service/internal/domain"
)

// SessionRepository persists one record per issued refresh token. Mutations
// are single-statement and rely on row-level atomicity: rotation is the sole
// serialization point for a token lineage.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// GetActive returns pgx.ErrNoRows when the record is absent, revoked or
	// expired. Expiry is checked at read time against the supplied instant.
	GetActive(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error)
	// Rotate atomically revokes the record under oldTokenHash and inserts the
	// successor. Under concurrent calls with the same token exactly one wins;
	// the loser observes pgx.ErrNoRows.
	Rotate(ctx context.Context, oldTokenHash string, next *domain.Session, now time.Time) error
	// Revoke marks a record revoked and reports whether a live record was hit.
	// Revoking an already-revoked record is not an error.
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error)
	// DeleteExpired garbage-collects expired and revoked rows. Maintenance
	// only, never on the request path.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (token_id, token_hash, subject_id, issued_at, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		session.TokenID,
		session.TokenHash,
		session.SubjectID,
		session.IssuedAt,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
}

func (r *sessionRepository) GetActive(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error) {
	const query = `
        SELECT id, token_id, token_hash, subject_id, issued_at, expires_at, revoked, created_at
        FROM sessions
        WHERE token_hash=$1 AND NOT revoked AND expires_at > $2`

	var session domain.Session
	if err := r.pool.QueryRow(ctx, query, tokenHash, now).Scan(
		&session.ID,
		&session.TokenID,
		&session.TokenHash,
		&session.SubjectID,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.Revoked,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Rotate(ctx context.Context, oldTokenHash string, next *domain.Session, now time.Time) error {
	// The UPDATE is the compare-and-set: only a live row matches, and the
	// INSERT fires only when a row was revoked by this statement.
	const query = `
        WITH rotated AS (
            UPDATE sessions SET revoked = TRUE
            WHERE token_hash=$1 AND NOT revoked AND expires_at > $2
            RETURNING subject_id
        )
        INSERT INTO sessions (token_id, token_hash, subject_id, issued_at, expires_at)
        SELECT $3, $4, rotated.subject_id, $5, $6 FROM rotated
        RETURNING id, subject_id, created_at`

	return r.pool.QueryRow(ctx, query,
		oldTokenHash,
		now,
		next.TokenID,
		next.TokenHash,
		next.IssuedAt,
		next.ExpiresAt,
	).Scan(&next.ID, &next.SubjectID, &next.CreatedAt)
}

func (r *sessionRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	const query = `
        UPDATE sessions SET revoked = TRUE
        WHERE token_hash=$1 AND NOT revoked`

	cmd, err := r.pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *sessionRepository) RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error) {
	const query = `
        UPDATE sessions SET revoked = TRUE
        WHERE subject_id=$1 AND NOT revoked`

	cmd, err := r.pool.Exec(ctx, query, subjectID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
        DELETE FROM sessions
        WHERE expires_at < $1 OR revoked`

	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
