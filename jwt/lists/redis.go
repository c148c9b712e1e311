package lists

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisList keeps each token at "<prefix>:<kind>:<token>" with the insertion
// time as value.
type RedisList struct {
	redis  redis.UniversalClient
	kind   Kind
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// RedisOption configures a RedisList.
type RedisOption func(*RedisList)

// WithTTL bounds how long a token stays listed. Zero keeps it forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisList) { l.ttl = ttl }
}

// WithPrefix replaces the "jwt" key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisList) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithRedisLogger sets the debug logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(l *RedisList) { l.logger = logger }
}

// NewRedisList creates a RedisList of the given kind.
func NewRedisList(client redis.UniversalClient, kind Kind, opts ...RedisOption) *RedisList {
	l := &RedisList{
		redis:  client,
		kind:   kind,
		prefix: "jwt",
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisList) key(token string) string {
	return l.prefix + ":" + string(l.kind) + ":" + token
}

func (l *RedisList) Kind() Kind { return l.kind }

func (l *RedisList) Add(ctx context.Context, token string) error {
	stamp := strconv.FormatInt(l.now().Unix(), 10)
	if err := l.redis.Set(ctx, l.key(token), stamp, l.ttl).Err(); err != nil {
		return unavailable(err)
	}
	l.logger.Debug("token listed", "list", l.kind, "token_len", len(token))
	return nil
}

func (l *RedisList) Check(ctx context.Context, token string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.key(token)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (l *RedisList) Delete(ctx context.Context, token string) error {
	if err := l.redis.Del(ctx, l.key(token)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
