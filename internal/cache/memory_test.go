package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "otp:carol", []byte("012345"), 0))

	value, ok, err := store.Get(ctx, "otp:carol")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("012345"), value)

	require.NoError(t, store.Set(ctx, "otp:carol", []byte("999999"), 0))
	value, _, _ = store.Get(ctx, "otp:carol")
	require.Equal(t, []byte("999999"), value)

	require.NoError(t, store.Delete(ctx, "otp:carol", "missing"))
	_, ok, err = store.Get(ctx, "otp:carol")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", []byte("a"), 0))

	deleted, err := store.CompareAndDelete(ctx, "k", []byte("b"))
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, "k", []byte("a"))
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, "k", []byte("a"))
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestMemoryStoreCompareAndDeleteSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", []byte("123456"), 0))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.CompareAndDelete(ctx, "k", []byte("123456")); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))
	require.Equal(t, 2, store.Len())

	now = now.Add(time.Minute)
	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	require.ErrorIs(t, store.Set(ctx, "k", nil, 0), ErrClosed)
	_, _, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrClosed)
}
