package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindow, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	// Wide window so the test never straddles a boundary.
	return NewFixedWindow(client, "rl:test", limit, time.Hour), mr
}

func TestFixedWindowLimits(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 1)

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFixedWindowFailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()

	// An unreachable counter store must not lock callers out.
	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.Error(t, err)
	require.True(t, ok)
}

func TestUnlimited(t *testing.T) {
	t.Parallel()

	ok, err := Unlimited{}.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	require.True(t, ok)
}
