package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const failurePrefix = "voicegate:failures:"

// RedisFailureStore tracks consecutive authentication failures per user in
// redis, so lockout state survives restarts and is shared across instances.
// Counters have no TTL; only a success or an administrative reset clears
// them.
type RedisFailureStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisFailureStore creates a redis-backed failure store.
func NewRedisFailureStore(client *redis.Client, logger *zap.Logger) *RedisFailureStore {
	return &RedisFailureStore{client: client, logger: logger}
}

// Increment atomically bumps the user's consecutive failure count and
// returns the new value.
func (s *RedisFailureStore) Increment(ctx context.Context, userID string) (int, error) {
	count, err := s.client.Incr(ctx, failurePrefix+userID).Result()
	if err != nil {
		s.logger.Error("failure counter increment failed",
			zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("increment failure counter: %w", err)
	}
	return int(count), nil
}

// Reset clears the user's consecutive failure count.
func (s *RedisFailureStore) Reset(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, failurePrefix+userID).Err(); err != nil {
		s.logger.Error("failure counter reset failed",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("reset failure counter: %w", err)
	}
	return nil
}

// Count returns the user's current consecutive failure count.
func (s *RedisFailureStore) Count(ctx context.Context, userID string) (int, error) {
	count, err := s.client.Get(ctx, failurePrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read failure counter: %w", err)
	}
	return count, nil
}
