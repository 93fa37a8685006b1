package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/repository"
)

type fakeResetStore struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{tokens: map[string]*repository.PasswordResetToken{}}
}

func (f *fakeResetStore) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	clone := *token
	f.tokens[token.Token] = &clone
	return nil
}

func (f *fakeResetStore) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (f *fakeResetStore) MarkUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for _, record := range f.tokens {
		if record.ID == id {
			record.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeResetStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for token, record := range f.tokens {
		if !record.ExpiresAt.After(cutoff) {
			delete(f.tokens, token)
			count++
		}
	}
	return count, nil
}

var _ repository.PasswordResetRepository = (*fakeResetStore)(nil)

type accountFixture struct {
	*tokenFixture
	accounts *AccountService
	resets   *fakeResetStore
	resetReq *capturedEvents
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	cfg := testAuthConfig()
	cfg.PasswordResetTTLMinutes = 30
	fx := newTokenFixture(t, cfg)
	resets := newFakeResetStore()

	captured := &capturedEvents{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventPasswordResetRequested, captured.record)

	accounts := NewAccountService(cfg, AccountDependencies{
		UserRepo:          fx.users,
		PasswordResetRepo: resets,
		TokenService:      fx.svc,
		Hasher:            auth.NewHasher(auth.Argon2Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1}),
		Clock:             auth.SystemClock(),
		Dispatcher:        dispatcher,
	})
	return &accountFixture{tokenFixture: fx, accounts: accounts, resets: resets, resetReq: captured}
}

func TestRegisterAutoLogin(t *testing.T) {
	t.Parallel()

	fx := newAccountFixture(t)
	ctx := context.Background()

	user, pair, err := fx.accounts.Register(ctx, "Grace", "grace@example.com", "s3cret-enough")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, 1, fx.sessions.activeCount(user.ID))

	// The initial pair is immediately usable.
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Duplicate registration is rejected.
	_, _, err = fx.accounts.Register(ctx, "Grace", "grace@example.com", "another")
	require.Error(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	t.Parallel()

	fx := newAccountFixture(t)
	ctx := context.Background()

	user, pair, err := fx.accounts.Register(ctx, "Grace", "grace@example.com", "old-password-1")
	require.NoError(t, err)

	require.ErrorIs(t,
		fx.accounts.ChangePassword(ctx, user.ID, "wrong-current", "new-password-1"),
		auth.ErrInvalidCredential)

	require.NoError(t, fx.accounts.ChangePassword(ctx, user.ID, "old-password-1", "new-password-1"))

	// Every outstanding refresh token is dead after the change.
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)

	_, _, err = fx.svc.Login(ctx, "grace@example.com", "old-password-1")
	require.ErrorIs(t, err, auth.ErrInvalidCredential)
	_, _, err = fx.svc.Login(ctx, "grace@example.com", "new-password-1")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	fx := newAccountFixture(t)
	ctx := context.Background()

	_, pair, err := fx.accounts.Register(ctx, "Grace", "grace@example.com", "old-password-1")
	require.NoError(t, err)

	// Unknown emails report success and leak nothing.
	require.NoError(t, fx.accounts.RequestPasswordReset(ctx, "nobody@example.com"))
	require.Empty(t, fx.resetReq.ofType(events.EventPasswordResetRequested))

	require.NoError(t, fx.accounts.RequestPasswordReset(ctx, "grace@example.com"))
	requested := fx.resetReq.ofType(events.EventPasswordResetRequested)
	require.Len(t, requested, 1)
	payload, ok := requested[0].Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)
	require.NotEmpty(t, payload.ResetToken)

	require.NoError(t, fx.accounts.ConfirmPasswordReset(ctx, payload.ResetToken, "new-password-1"))

	// Reset revoked the session family and the token is single-use.
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)
	require.Error(t, fx.accounts.ConfirmPasswordReset(ctx, payload.ResetToken, "again-password"))

	_, _, err = fx.svc.Login(ctx, "grace@example.com", "new-password-1")
	require.NoError(t, err)
}
