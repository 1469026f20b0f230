package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionPrefix = "voicegate:session:"

// RedisSessionStore records the last successful authentication per user in
// redis. Entries expire after the retention period; an expired entry reads
// the same as a user who never authenticated.
type RedisSessionStore struct {
	client    *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

// NewRedisSessionStore creates a redis-backed session store. Retention
// bounds how long a last-success stamp is kept; zero keeps stamps forever.
func NewRedisSessionStore(client *redis.Client, logger *zap.Logger, retention time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, logger: logger, retention: retention}
}

// RecordSuccess stamps the user's last successful authentication time.
func (s *RedisSessionStore) RecordSuccess(ctx context.Context, userID string, at time.Time) error {
	err := s.client.Set(ctx, sessionPrefix+userID, at.UnixNano(), s.retention).Err()
	if err != nil {
		s.logger.Error("session stamp write failed",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// LastSuccess returns the user's last successful authentication time. The
// boolean is false when no stamp exists.
func (s *RedisSessionStore) LastSuccess(ctx context.Context, userID string) (time.Time, bool, error) {
	nanos, err := s.client.Get(ctx, sessionPrefix+userID).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read session: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}
