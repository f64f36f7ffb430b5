package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
)

const keyPrefix = "mixdown:outcome:"

// RedisStore caches outcomes in Redis so verification workers on
// different hosts share hits.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. The caller owns client
// configuration; Close closes the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func makeKey(key string) string {
	return keyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*catalog.Outcome, bool, error) {
	data, err := s.client.Get(ctx, makeKey(key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var out catalog.Outcome
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, false, fmt.Errorf("redis get: decode cached outcome: %w", err)
	}
	return &out, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, out *catalog.Outcome, ttl time.Duration) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("redis set: encode outcome: %w", err)
	}
	if err := s.client.Set(ctx, makeKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, makeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
