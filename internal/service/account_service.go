package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/config"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/repository"
)

// AccountService coordinates registration and credential-change flows.
// Anything that changes a credential revokes the subject's whole session
// family through the token service.
type AccountService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenSvc   *TokenService
	hasher     *auth.Hasher
	clock      auth.Clock
	dispatcher events.Dispatcher
	resetTTL   time.Duration
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	TokenService      *TokenService
	Hasher            *auth.Hasher
	Clock             auth.Clock
	Dispatcher        events.Dispatcher
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) *AccountService {
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &AccountService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenSvc:   deps.TokenService,
		hasher:     deps.Hasher,
		clock:      clock,
		dispatcher: deps.Dispatcher,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new active account and issues an initial token pair.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, errors.New("email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email: user.Email,
		Name:  user.Name,
	})

	pair, err := s.tokenSvc.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ChangePassword verifies the current secret, rehashes and revokes every
// outstanding session of the subject.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return auth.ErrInvalidCredential
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if _, err := s.tokenSvc.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)
	return nil
}

// RequestPasswordReset persists a single-use reset token and hands it to the
// notification path. An unknown email reports success to the caller; the
// event simply never fires (anti-enumeration).
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email:      user.Email,
		ResetToken: token.Token,
		ExpiresAt:  token.ExpiresAt,
	})
	return nil
}

// ConfirmPasswordReset validates the reset token, updates the password and
// revokes the subject's session family.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || s.clock.Now().After(token.ExpiresAt) {
		return errors.New("token expired or used")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return err
	}

	if _, err := s.tokenSvc.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)
	return nil
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
}
