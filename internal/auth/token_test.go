package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workspace-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestManager(t *testing.T, clock Clock) *TokenManager {
	t.Helper()
	ring, err := NewKeyRing(SigningKey{ID: "k1", Secret: []byte("test-secret-one")})
	require.NoError(t, err)
	return NewTokenManager(ring, clock, DefaultLeeway)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestManager(t, clock)

	signed, issued, err := tm.Issue("user-1", domain.TokenTypeAccess, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := tm.Decode(signed, domain.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, domain.TokenTypeAccess, claims.TokenType)
	require.Equal(t, issued.ID, claims.ID)
}

func TestTokenWrongType(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestManager(t, clock)

	signed, _, err := tm.Issue("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	_, err = tm.Decode(signed, domain.TokenTypeAccess)
	require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestManager(t, clock)

	signed, _, err := tm.Issue("user-1", domain.TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	// Past expiry but inside the leeway window: still accepted.
	clock.Advance(time.Minute + 10*time.Second)
	_, err = tm.Decode(signed, domain.TokenTypeAccess)
	require.NoError(t, err)

	// Beyond expiry plus leeway: rejected.
	clock.Advance(time.Minute)
	_, err = tm.Decode(signed, domain.TokenTypeAccess)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenInvalidSignature(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestManager(t, clock)

	otherRing, err := NewKeyRing(SigningKey{ID: "k1", Secret: []byte("a-different-secret")})
	require.NoError(t, err)
	other := NewTokenManager(otherRing, clock, DefaultLeeway)

	signed, _, err := other.Issue("user-1", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = tm.Decode(signed, domain.TokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenMalformed(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestManager(t, clock)

	for _, raw := range []string{"", "garbage", "a.b", "not.a.jwt"} {
		_, err := tm.Decode(raw, domain.TokenTypeAccess)
		require.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
	}
}

func TestKeyRotationKeepsOldTokensVerifiable(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ring, err := NewKeyRing(SigningKey{ID: "old", Secret: []byte("old-secret")})
	require.NoError(t, err)
	tm := NewTokenManager(ring, clock, DefaultLeeway)

	oldToken, _, err := tm.Issue("user-1", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	require.NoError(t, ring.Rotate(SigningKey{ID: "new", Secret: []byte("new-secret")}))

	// Tokens signed before rotation stay valid until they expire.
	_, err = tm.Decode(oldToken, domain.TokenTypeAccess)
	require.NoError(t, err)

	// New tokens are signed with the new key and verify too.
	newToken, _, err := tm.Issue("user-1", domain.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	_, err = tm.Decode(newToken, domain.TokenTypeAccess)
	require.NoError(t, err)

	// Retiring the old key finally invalidates its tokens.
	require.NoError(t, ring.Retire("old"))
	_, err = tm.Decode(oldToken, domain.TokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	h1 := HashToken("some-refresh-token")
	h2 := HashToken("some-refresh-token")
	h3 := HashToken("another-token")

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Len(t, h1, 64)
	require.NotContains(t, h1, "some-refresh-token")
}
