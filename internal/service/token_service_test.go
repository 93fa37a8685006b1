package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/config"
	"github.com/spec-kit/workspace-service/internal/domain"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/repository"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*domain.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) List(_ context.Context, _, _ int) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

// fakeSessionStore mirrors the transactional semantics of the SQL store: the
// mutex plays the role of the single-statement CAS, so Rotate admits exactly
// one winner per token hash.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	failures []error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*domain.Session{}}
}

func (f *fakeSessionStore) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

func (f *fakeSessionStore) popFailure() error {
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(); err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	clone := *session
	f.sessions[session.TokenHash] = &clone
	return nil
}

func (f *fakeSessionStore) GetActive(_ context.Context, tokenHash string, now time.Time) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(); err != nil {
		return nil, err
	}
	session, ok := f.sessions[tokenHash]
	if !ok || session.Revoked || !session.ExpiresAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	clone := *session
	return &clone, nil
}

func (f *fakeSessionStore) Rotate(_ context.Context, oldTokenHash string, next *domain.Session, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(); err != nil {
		return err
	}
	old, ok := f.sessions[oldTokenHash]
	if !ok || old.Revoked || !old.ExpiresAt.After(now) {
		return pgx.ErrNoRows
	}
	old.Revoked = true
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	clone := *next
	f.sessions[next.TokenHash] = &clone
	return nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, tokenHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(); err != nil {
		return false, err
	}
	session, ok := f.sessions[tokenHash]
	if !ok || session.Revoked {
		return false, nil
	}
	session.Revoked = true
	return true, nil
}

func (f *fakeSessionStore) RevokeAllForSubject(_ context.Context, subjectID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(); err != nil {
		return 0, err
	}
	var count int64
	for _, session := range f.sessions {
		if session.SubjectID == subjectID && !session.Revoked {
			session.Revoked = true
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for hash, session := range f.sessions {
		if !session.ExpiresAt.After(cutoff) {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) activeCount(subjectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, session := range f.sessions {
		if session.SubjectID == subjectID && !session.Revoked {
			count++
		}
	}
	return count
}

var _ repository.SessionRepository = (*fakeSessionStore)(nil)
var _ repository.UserRepository = (*fakeUserStore)(nil)

type tokenFixture struct {
	svc      *TokenService
	users    *fakeUserStore
	sessions *fakeSessionStore
	user     *domain.User
	events   *capturedEvents
}

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) record(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturedEvents) ofType(eventType events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, event := range c.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SigningKeys:           "k1:unit-test-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   14,
		LeewaySeconds:         30,
		RevokeFamilyOnReplay:  true,
		HashConcurrency:       2,
		Argon2MemoryKB:        8 * 1024,
		Argon2Time:            1,
		Argon2Parallelism:     1,
	}
}

func newTokenFixture(t *testing.T, cfg config.AuthConfig) *tokenFixture {
	t.Helper()

	ring, err := auth.NewKeyRing(auth.SigningKey{ID: "k1", Secret: []byte("unit-test-secret")})
	require.NoError(t, err)
	clock := auth.SystemClock()
	tokens := auth.NewTokenManager(ring, clock, cfg.Leeway())
	hasher := auth.NewHasher(auth.Argon2Params{
		MemoryKB:    uint32(cfg.Argon2MemoryKB),
		Time:        uint32(cfg.Argon2Time),
		Parallelism: uint8(cfg.Argon2Parallelism),
	})

	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	captured := &capturedEvents{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventSessionFamilyRevoked, captured.record)

	svc := NewTokenService(cfg, TokenDependencies{
		UserRepo:    users,
		SessionRepo: sessions,
		Tokens:      tokens,
		Hasher:      hasher,
		Clock:       clock,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})

	hash, err := hasher.Hash("hunter2-correct")
	require.NoError(t, err)
	user := &domain.User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	require.NoError(t, users.Create(context.Background(), user))

	return &tokenFixture{svc: svc, users: users, sessions: sessions, user: user, events: captured}
}

func TestLoginIssuesPair(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	user, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)
	require.Equal(t, fx.user.ID, user.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
	require.Equal(t, 1, fx.sessions.activeCount(fx.user.ID))
}

func TestLoginFailuresAreUniform(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	// Wrong password and unknown account yield the same sentinel.
	_, _, err := fx.svc.Login(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, _, err = fx.svc.Login(ctx, "nobody@example.com", "hunter2-correct")
	require.ErrorIs(t, err, auth.ErrInvalidCredential)

	require.Equal(t, 0, fx.sessions.activeCount(fx.user.ID))
}

func TestLoginInactiveAccount(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	fx.user.Status = domain.UserStatusSuspended
	require.NoError(t, fx.users.Update(ctx, fx.user))

	// The credential itself is fine; only the account state blocks login.
	_, _, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.ErrorIs(t, err, auth.ErrAccountInactive)
}

func TestRefreshRotatesSingleUse(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	_, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)

	rotated, err := fx.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.Equal(t, 1, fx.sessions.activeCount(fx.user.ID))

	// The spent token is dead; replaying it fails and, with family
	// revocation on, kills the successor too.
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)
	require.Equal(t, 0, fx.sessions.activeCount(fx.user.ID))
	require.NotEmpty(t, fx.events.ofType(events.EventSessionFamilyRevoked))

	_, err = fx.svc.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)
}

func TestRefreshReplayWithoutFamilyRevocation(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.RevokeFamilyOnReplay = false
	fx := newTokenFixture(t, cfg)
	ctx := context.Background()

	_, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)

	rotated, err := fx.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)

	// The successor lineage survives.
	_, err = fx.svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	require.Empty(t, fx.events.ofType(events.EventSessionFamilyRevoked))
}

func TestConcurrentRefreshExactlyOneWins(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.RevokeFamilyOnReplay = false
	fx := newTokenFixture(t, cfg)
	ctx := context.Background()

	_, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)
		}
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 1, fx.sessions.activeCount(fx.user.ID))
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	_, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)

	require.NoError(t, fx.svc.Logout(ctx, pair.RefreshToken))
	require.Equal(t, 0, fx.sessions.activeCount(fx.user.ID))

	// Logging out twice, or with garbage, still succeeds.
	require.NoError(t, fx.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, fx.svc.Logout(ctx, "not-even-a-token"))

	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenRevokedOrExpired)
}

func TestRevokeAll(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
		require.NoError(t, err)
	}
	require.Equal(t, 3, fx.sessions.activeCount(fx.user.ID))

	count, err := fx.svc.RevokeAll(ctx, fx.user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
	require.Equal(t, 0, fx.sessions.activeCount(fx.user.ID))
	require.NotEmpty(t, fx.events.ofType(events.EventSessionFamilyRevoked))
}

func TestStoreFailureRetriesOnce(t *testing.T) {
	t.Parallel()

	fx := newTokenFixture(t, testAuthConfig())
	ctx := context.Background()

	// One transient failure: the retry succeeds.
	fx.sessions.failNext(errors.New("connection reset"))
	_, pair, err := fx.svc.Login(ctx, "ada@example.com", "hunter2-correct")
	require.NoError(t, err)

	// Failures on the call and its retry surface as store unavailability,
	// never as a revoked token.
	fx.sessions.failNext(errors.New("connection reset"), errors.New("connection reset"))
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrStoreUnavailable)
	require.NotErrorIs(t, err, auth.ErrTokenRevokedOrExpired)

	// The token was never consumed, so it still works once the store is back.
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}
