package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// LoginLimiter counts failed logins per identifier.
type LoginLimiter interface {
	// Allow returns ErrTooManyAttempts once the failure budget is spent.
	Allow(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) error         { return nil }
func (noopLimiter) RecordFailure(context.Context, string) error { return nil }
func (noopLimiter) Reset(context.Context, string) error         { return nil }

// NoopLoginLimiter never blocks; used when Redis is not configured.
func NoopLoginLimiter() LoginLimiter {
	return noopLimiter{}
}

// RedisLoginLimiter keeps a counter per identifier that expires with the window
// opened by the first failure.
type RedisLoginLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLoginLimiter{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func loginAttemptsKey(identifier string) string {
	return fmt.Sprintf("login:attempts:%s", strings.ToLower(identifier))
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, identifier string) error {
	count, err := l.redis.Get(ctx, loginAttemptsKey(identifier)).Int()
	if err != nil && err != redis.Nil {
		return err
	}

	if count >= l.maxAttempts {
		return ErrTooManyAttempts
	}

	return nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	key := loginAttemptsKey(identifier)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.redis.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, identifier string) error {
	return l.redis.Del(ctx, loginAttemptsKey(identifier)).Err()
}
