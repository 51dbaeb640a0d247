package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginRateLimiter throttles repeated login attempts per email using a
// fixed-window counter in Redis. A nil limiter allows everything.
type LoginRateLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewLoginRateLimiter builds a limiter; max <= 0 disables it.
func NewLoginRateLimiter(client *redis.Client, max int, window time.Duration) *LoginRateLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	return &LoginRateLimiter{client: client, max: max, window: window}
}

// Allow records one attempt and reports whether it is within the window
// budget. Redis unavailability fails open.
func (l *LoginRateLimiter) Allow(ctx context.Context, email string) bool {
	if l == nil {
		return true
	}
	key := "login_attempts:" + email
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}
	return count <= int64(l.max)
}

// Reset clears the attempt counter after a successful login.
func (l *LoginRateLimiter) Reset(ctx context.Context, email string) {
	if l == nil {
		return
	}
	l.client.Del(ctx, "login_attempts:"+email)
}
