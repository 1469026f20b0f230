package voiceauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	_, ok, err := store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	first := time.Now().Add(-10 * time.Minute)
	require.NoError(t, store.RecordSuccess(ctx, "alice", first))

	at, ok, err := store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, at)

	// A newer success replaces the old stamp.
	second := time.Now()
	require.NoError(t, store.RecordSuccess(ctx, "alice", second))

	at, ok, err = store.LastSuccess(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, at)

	_, ok, err = store.LastSuccess(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}
