// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/taibuivan/animeids/internal/platform/redis"
)

// incrementBelowScript bumps KEYS[1] unless it already reached ARGV[1].
// ARGV[2] is the expiry in milliseconds applied when the counter is created.
var incrementBelowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 and tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

// RedisStore implements [Store], [Counter] and [Pinger] on a Redis client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: redis_get_failed: %w", err)
	}
	return value, nil
}

// Put implements [Store].
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv: redis_set_failed: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: redis_del_failed: %w", err)
	}
	return nil
}

// IncrementBelow implements [Counter].
func (s *RedisStore) IncrementBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	result, err := incrementBelowScript.Run(ctx, s.client, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("kv: redis_increment_failed: %w", err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("kv: redis_increment_failed: unexpected reply %v", result)
	}
	return result[0], result[1] == 1, nil
}

// Ping implements [Pinger].
func (s *RedisStore) Ping(ctx context.Context) error {
	return redisclient.Ping(ctx, s.client)
}
