package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultCooldown    = time.Minute
	defaultPrefix      = "jam:att:"
)

var (
	// ErrRateLimited is returned once an identifier has used its attempt budget.
	ErrRateLimited = errors.New("attempts exceeded")
	// ErrUnavailable wraps Redis failures.
	ErrUnavailable = errors.New("attempt store unavailable")
)

// Config holds limiter thresholds. Zero fields fall back to 5 attempts per
// one minute window under the "jam:att:" prefix.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// Limiter counts failures per identifier in fixed Redis windows.
type Limiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
	prefix      string
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultCooldown
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{redis: redisClient, maxAttempts: int64(max), cooldown: cd, prefix: prefix}
}

func (l *Limiter) key(id string) string {
	return l.prefix + id
}

// Check returns ErrRateLimited when id has no attempts left in the window.
func (l *Limiter) Check(ctx context.Context, id string) error {
	count, err := l.Attempts(ctx, id)
	if err != nil {
		return err
	}
	if int64(count) >= l.maxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Attempts returns the failures recorded for id in the current window.
func (l *Limiter) Attempts(ctx context.Context, id string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(max(count, 0)), nil
}

// RecordFailure counts one failure and returns ErrRateLimited when it used
// the last attempt.
func (l *Limiter) RecordFailure(ctx context.Context, id string) error {
	count, err := l.redis.Incr(ctx, l.key(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Fixed window: the TTL is set on the first failure only.
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(id), l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count >= l.maxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for id, typically after a success.
func (l *Limiter) Reset(ctx context.Context, id string) error {
	if err := l.redis.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
