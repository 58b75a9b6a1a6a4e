// Package cache is a best-effort read-through facade over redis. It is
// never a source of truth: every operation degrades to a miss or a no-op
// when the backend is unreachable, and writes only report boolean success.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
)

// Store is what the search engine and reservation coordinator depend on.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Invalidate(ctx context.Context, keys ...string) bool
	InvalidateByPrefix(ctx context.Context, prefix string) bool
}

type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("cache entry undecodable, dropping", zap.String("key", key), zap.Error(err))
		s.client.Del(ctx, key)
		return false
	}
	return true
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache set: marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
		return false
	}
	return true
}

func (s *RedisStore) InvalidateByPrefix(ctx context.Context, prefix string) bool {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			s.logger.Warn("cache prefix scan failed", zap.String("prefix", prefix), zap.Error(err))
			return false
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.logger.Warn("cache prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
				return false
			}
		}
		cursor = next
		if cursor == 0 {
			return true
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Noop satisfies Store for degraded mode and tests: every read misses and
// every write succeeds without effect.
type Noop struct{}

func (Noop) Get(context.Context, string, any) bool                { return false }
func (Noop) Set(context.Context, string, any, time.Duration) bool { return true }
func (Noop) Invalidate(context.Context, ...string) bool           { return true }
func (Noop) InvalidateByPrefix(context.Context, string) bool      { return true }

var (
	_ Store = (*RedisStore)(nil)
	_ Store = Noop{}
)
