package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "handoff:"

// RedisStore keeps entries in Redis so several web front instances can share sessions
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedisStore connects to the Redis server at url (redis://host:port/db) and checks it responds
func OpenRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(client, defaultRedisPrefix, ttl), nil
}

func (r *RedisStore) key(sessionID, key string) string {
	return r.prefix + sessionID + ":" + key
}

func (r *RedisStore) lockKey(sessionID, name string) string {
	return r.prefix + sessionID + ":lock:" + name
}

func (r *RedisStore) Put(ctx context.Context, sessionID, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(sessionID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("handoff set error: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(sessionID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("handoff get error: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(sessionID, key)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("handoff delete error: %w", err)
	}
	return nil
}

func (r *RedisStore) Acquire(ctx context.Context, sessionID, name string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.lockKey(sessionID, name), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("handoff lock error: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Locked(ctx context.Context, sessionID, name string) (bool, error) {
	n, err := r.client.Exists(ctx, r.lockKey(sessionID, name)).Result()
	if err != nil {
		return false, fmt.Errorf("handoff lock check error: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Release(ctx context.Context, sessionID, name string) error {
	if err := r.client.Del(ctx, r.lockKey(sessionID, name)).Err(); err != nil {
		return fmt.Errorf("handoff unlock error: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
