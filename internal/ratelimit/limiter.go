package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter bounds how often a key may perform an action. The counter store is
// external so limits hold across processes.
type Limiter interface {
	// Allow consumes one attempt for key and reports whether it stays within
	// the limit. Fails open on counter-store errors: rate limiting protects
	// against abuse, it must not take the service down with it.
	Allow(ctx context.Context, key string) (bool, error)
}

// FixedWindow counts attempts per key in fixed windows backed by Redis.
type FixedWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewFixedWindow builds a limiter allowing limit attempts per window.
func NewFixedWindow(client *redis.Client, prefix string, limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow increments the key's window counter and compares it to the limit.
func (l *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, time.Now().Unix()/int64(l.window.Seconds()))

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return count.Val() <= int64(l.limit), nil
}

// Unlimited is the noop limiter used when rate limiting is disabled.
type Unlimited struct{}

// Allow always permits.
func (Unlimited) Allow(context.Context, string) (bool, error) {
	return true, nil
}
