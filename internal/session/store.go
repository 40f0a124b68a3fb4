// Package session keeps per-login key/value state in Redis.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when the session expired or was destroyed.
var ErrSessionNotFound = errors.New("session not found")

const (
	keyPrefix    = "helpdesk:session:"
	createdField = "_created_at"
)

// setIfAlive writes one field and refreshes the TTL only while the session
// hash still exists, so a concurrent Destroy cannot be undone by a write.
var setIfAlive = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Store is session-scoped key/value storage.
type Store interface {
	Create(ctx context.Context) (string, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Get returns the value and whether it was set.
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Destroy(ctx context.Context, sessionID string) error
}

// RedisStore keeps each session in one hash that expires after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a store over client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	key := keyPrefix + id
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, createdField, time.Now().UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	val, err := s.client.HGet(ctx, keyPrefix+sessionID, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	written, err := setIfAlive.Run(ctx, s.client, []string{keyPrefix + sessionID},
		key, value, s.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if written == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}
