package domain

import "time"

// TokenType tags issued tokens so access and refresh tokens can never be
// confused for one another.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Session tracks one issued refresh token. Access tokens are stateless and
// never persisted; a refresh token is dead once its session row is revoked.
type Session struct {
	ID        string
	TokenID   string
	TokenHash string
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// ActiveAt reports whether the session is usable at the given instant.
func (s *Session) ActiveAt(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}
