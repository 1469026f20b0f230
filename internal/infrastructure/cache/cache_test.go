package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voicegate/backend/internal/infrastructure/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *config.RedisConfig) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, &config.RedisConfig{URL: mr.Addr()}
}

func TestNewRedisClient(t *testing.T) {
	_, cfg := setupTestRedis(t)
	logger := zaptest.NewLogger(t)

	client, err := NewRedisClient(cfg, logger)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewRedisClient(&config.RedisConfig{URL: "127.0.0.1:1"}, logger)
	assert.Error(t, err)
}

func TestRedisFailureStore(t *testing.T) {
	_, cfg := setupTestRedis(t)
	logger := zaptest.NewLogger(t)

	client, err := NewRedisClient(cfg, logger)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisFailureStore(client, logger)

	count, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i := 1; i <= 3; i++ {
		count, err = store.Increment(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err = store.Increment(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Reset(ctx, "alice"))

	count, err = store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.Count(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisSessionStore(t *testing.T) {
	mr, cfg := setupTestRedis(t)
	logger := zaptest.NewLogger(t)

	client, err := NewRedisClient(cfg, logger)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisSessionStore(client, logger, time.Hour)

	_, ok, err := store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	stamp := time.Now().Truncate(time.Nanosecond)
	require.NoError(t, store.RecordSuccess(ctx, "alice", stamp))

	at, ok, err := store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stamp.Equal(at))

	// Stamps expire after the retention period.
	mr.FastForward(2 * time.Hour)

	_, ok, err = store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}
