package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each session at "<prefix>:<session key>:<id>" with its TTL
// and indexes the IDs of a session key in the set "<prefix>:<session key>".
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a [RedisBackend]. An empty prefix defaults to "sessions".
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "sessions"
	}
	return &RedisBackend{redis: client, prefix: prefix}
}

func (s *RedisBackend) key(sessionKey, sessionID string) string {
	return s.prefix + ":" + sessionKey + ":" + sessionID
}

func (s *RedisBackend) indexKey(sessionKey string) string {
	return s.prefix + ":" + sessionKey
}

// Put writes the blob and indexes the ID in one transaction.
//
//	Performance: 1 round trip (SET + SADD in MULTI).
func (s *RedisBackend) Put(ctx context.Context, sessionKey, sessionID string, data []byte, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sessionKey, sessionID), data, ttl)
		pipe.SAdd(ctx, s.indexKey(sessionKey), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Fetch reads a blob. Redis expiry makes expired sessions disappear; the stale
// index entry is dropped on the next miss.
func (s *RedisBackend) Fetch(ctx context.Context, sessionKey, sessionID string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(sessionKey, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if err := s.redis.SRem(ctx, s.indexKey(sessionKey), sessionID).Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Remove deletes one session. Removing a missing session is a no-op.
func (s *RedisBackend) Remove(ctx context.Context, sessionKey, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionKey, sessionID))
		pipe.SRem(ctx, s.indexKey(sessionKey), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RemoveAll deletes every indexed session of sessionKey.
//
// This is not fully atomic: a session created between SMEMBERS and the delete
// transaction survives and expires on its own TTL.
func (s *RedisBackend) RemoveAll(ctx context.Context, sessionKey string) error {
	ids, err := s.redis.SMembers(ctx, s.indexKey(sessionKey)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(sessionKey, id))
	}
	keys = append(keys, s.indexKey(sessionKey))

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Count returns the number of indexed sessions for sessionKey. Entries whose
// data already expired are counted until their next lookup.
func (s *RedisBackend) Count(ctx context.Context, sessionKey string) (int, error) {
	n, err := s.redis.SCard(ctx, s.indexKey(sessionKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}
