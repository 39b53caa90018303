package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Set STUDYHALL_TEST_REDIS_ADDR to run against a live server.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("STUDYHALL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STUDYHALL_TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: addr, Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func TestRedisKeyIsPrefixed(t *testing.T) {
	require.Equal(t, "studyhall:otp:carol", redisKey("otp:carol"))
}

func TestRedisStoreCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)
	key := "test:" + t.Name()

	require.NoError(t, store.Set(ctx, key, []byte("654321"), 0))

	deleted, err := store.CompareAndDelete(ctx, key, []byte("000000"))
	require.NoError(t, err)
	require.False(t, deleted)

	value, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("654321"), value)

	deleted, err = store.CompareAndDelete(ctx, key, []byte("654321"))
	require.NoError(t, err)
	require.True(t, deleted)

	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
