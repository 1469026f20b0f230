package voiceauth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFailureStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFailureStore()

	count, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i := 1; i <= 3; i++ {
		count, err = store.Increment(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	// Counters are isolated per user.
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

func TestMemoryFailureStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFailureStore()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, _ = store.Increment(ctx, "alice")
		}()
	}
	wg.Wait()

	count, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, goroutines, count)
}
