package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/todo-tracker/internal/cache"
	"github.com/dom/todo-tracker/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCache(t *testing.T) {
	redisURL := testutil.NewTestRedis(t)
	ctx := context.Background()

	client, err := cache.NewRedisClient(ctx, redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := cache.NewSessionCache(client)
	userID := uuid.New()

	t.Run("miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "hash-1", userID, time.Minute))

		got, ok, err := c.Get(ctx, "hash-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, userID, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "hash-2", userID, time.Minute))
		require.NoError(t, c.Delete(ctx, "hash-2"))

		_, ok, err := c.Get(ctx, "hash-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive ttl is not stored", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "hash-3", userID, 0))

		_, ok, err := c.Get(ctx, "hash-3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "session:hash-4", "not-a-uuid", time.Minute).Err())

		_, ok, err := c.Get(ctx, "hash-4")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
