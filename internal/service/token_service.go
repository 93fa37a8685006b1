package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/config"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/repository"
)

// TokenPair is the result of login and refresh: a short-lived stateless
// access token plus a long-lived, server-tracked, single-use refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService orchestrates the refresh-token lineage state machine:
// ISSUED -> ACTIVE -> {ROTATED | REVOKED | EXPIRED}. The session store's
// atomic revoke-and-insert is the sole serialization point; the service
// itself holds no per-lineage state.
type TokenService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenManager
	hasher     *auth.Hasher
	clock      auth.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger

	accessTTL            time.Duration
	refreshTTL           time.Duration
	revokeFamilyOnReplay bool
	retryBackoff         time.Duration

	// hashSlots bounds concurrent argon2 derivations so a login storm
	// cannot starve request handling.
	hashSlots chan struct{}
}

// TokenDependencies bundles collaborators for the token service.
type TokenDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Tokens      *auth.TokenManager
	Hasher      *auth.Hasher
	Clock       auth.Clock
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTokenService builds the service.
func NewTokenService(cfg config.AuthConfig, deps TokenDependencies) *TokenService {
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := cfg.HashConcurrency
	if slots <= 0 {
		slots = 4
	}
	return &TokenService{
		users:                deps.UserRepo,
		sessions:             deps.SessionRepo,
		tokens:               deps.Tokens,
		hasher:               deps.Hasher,
		clock:                clock,
		dispatcher:           deps.Dispatcher,
		logger:               logger,
		accessTTL:            time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		refreshTTL:           time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour,
		revokeFamilyOnReplay: cfg.RevokeFamilyOnReplay,
		retryBackoff:         100 * time.Millisecond,
		hashSlots:            make(chan struct{}, slots),
	}
}

// Login verifies the credential and issues an access/refresh pair. Unknown
// subject and wrong password produce the same ErrInvalidCredential; a dummy
// hash derivation runs for unknown subjects so timing does not differ either.
func (s *TokenService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.burnHashSlot(ctx)
			return nil, nil, auth.ErrInvalidCredential
		}
		return nil, nil, s.storeFailure(err)
	}

	ok, err := s.verifyPassword(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, auth.ErrInvalidCredential
	}
	if !user.IsActive() {
		return nil, nil, auth.ErrAccountInactive
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the old record is atomically revoked and
// its successor inserted, then a fresh pair is issued. A replayed token finds
// no live record and fails with ErrTokenRevokedOrExpired; when configured,
// that replay revokes the subject's whole session family as theft hardening.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Decode(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	nextRefresh, nextClaims, err := s.tokens.Issue(claims.Subject, domain.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	next := &domain.Session{
		TokenID:   nextClaims.ID,
		TokenHash: auth.HashToken(nextRefresh),
		SubjectID: claims.Subject,
		IssuedAt:  nextClaims.IssuedAt.Time,
		ExpiresAt: nextClaims.ExpiresAt.Time,
	}

	err = s.withRetry(ctx, func() error {
		return s.sessions.Rotate(ctx, auth.HashToken(refreshToken), next, now)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.handleReplay(ctx, claims.Subject)
			return nil, auth.ErrTokenRevokedOrExpired
		}
		return nil, err
	}

	accessToken, accessClaims, err := s.tokens.Issue(claims.Subject, domain.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     nextRefresh,
		RefreshExpiresAt: nextClaims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the session behind a refresh token. It is idempotent:
// already-revoked, expired and even undecodable tokens all succeed, so a
// client can always log out. Only store failures propagate.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokens.Decode(refreshToken, domain.TokenTypeRefresh); err != nil {
		if auth.IsAuthenticationError(err) {
			return nil
		}
		return err
	}

	tokenHash := auth.HashToken(refreshToken)
	err := s.withRetry(ctx, func() error {
		_, err := s.sessions.GetActive(ctx, tokenHash, s.clock.Now())
		return err
	})
	if err != nil {
		// Already revoked or expired: nothing to do.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	return s.withRetry(ctx, func() error {
		_, err := s.sessions.Revoke(ctx, tokenHash)
		return err
	})
}

// RevokeAll invalidates every outstanding refresh token for a subject,
// forcing re-authentication everywhere. Used on password change and reset.
func (s *TokenService) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	var count int64
	err := s.withRetry(ctx, func() error {
		var revokeErr error
		count, revokeErr = s.sessions.RevokeAllForSubject(ctx, subjectID)
		return revokeErr
	})
	if err != nil {
		return 0, err
	}
	s.publishFamilyRevoked(ctx, subjectID, "revoke_all", count)
	return count, nil
}

// IssuePair mints a fresh pair for an already-authenticated subject
// (registration auto-login).
func (s *TokenService) IssuePair(ctx context.Context, subjectID string) (*TokenPair, error) {
	return s.issuePair(ctx, subjectID)
}

func (s *TokenService) issuePair(ctx context.Context, subjectID string) (*TokenPair, error) {
	accessToken, accessClaims, err := s.tokens.Issue(subjectID, domain.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshClaims, err := s.tokens.Issue(subjectID, domain.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		TokenID:   refreshClaims.ID,
		TokenHash: auth.HashToken(refreshToken),
		SubjectID: subjectID,
		IssuedAt:  refreshClaims.IssuedAt.Time,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}
	if err := s.withRetry(ctx, func() error {
		return s.sessions.Create(ctx, session)
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func (s *TokenService) handleReplay(ctx context.Context, subjectID string) {
	if !s.revokeFamilyOnReplay {
		return
	}
	count, err := s.sessions.RevokeAllForSubject(ctx, subjectID)
	if err != nil {
		s.logger.Warn("replay hardening failed", zap.Error(err))
		return
	}
	s.logger.Warn("refresh replay detected, session family revoked",
		zap.String("subject_id", subjectID), zap.Int64("revoked", count))
	s.publishFamilyRevoked(ctx, subjectID, "refresh_replay", count)
}

func (s *TokenService) publishFamilyRevoked(ctx context.Context, subjectID, reason string, count int64) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionFamilyRevoked,
		SubjectID: subjectID,
		Timestamp: s.clock.Now(),
		Payload: events.SessionFamilyRevokedPayload{
			Reason:       reason,
			RevokedCount: count,
		},
	})
}

// verifyPassword runs the memory-hard comparison inside a bounded slot.
func (s *TokenService) verifyPassword(ctx context.Context, storedHash, password string) (bool, error) {
	select {
	case s.hashSlots <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-s.hashSlots }()
	return s.hasher.Verify(password, storedHash), nil
}

// burnHashSlot equalizes login timing for unknown subjects.
func (s *TokenService) burnHashSlot(ctx context.Context) {
	select {
	case s.hashSlots <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.hashSlots }()
	s.hasher.DummyVerify()
}

// withRetry runs a store operation, retrying once after a short backoff on
// transient failure. pgx.ErrNoRows is a semantic result and never retried.
// A failure after the retry surfaces as ErrStoreUnavailable: an unreachable
// store must not be read as "no active session".
func (s *TokenService) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	select {
	case <-time.After(s.retryBackoff):
	case <-ctx.Done():
		return s.storeFailure(err)
	}

	if err = op(); err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return s.storeFailure(err)
}

func (s *TokenService) storeFailure(err error) error {
	s.logger.Error("session store failure", zap.Error(err))
	return errors.Join(auth.ErrStoreUnavailable, err)
}
