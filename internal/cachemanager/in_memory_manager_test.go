package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fileHash string

type cachedList struct {
	Episode string
	Times   []float64
}

func newListCache() *InMemoryCacheManager[fileHash, cachedList] {
	return NewInMemoryCacheManager[fileHash, cachedList]("comments", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_GetStoredValue(t *testing.T) {
	cache := newListCache()
	want := cachedList{Episode: "ep01", Times: []float64{0.5, 1.25}}
	cache.Set(context.Background(), "abc", want, time.Minute)

	got, ok := cache.Get(context.Background(), "abc")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestInMemoryCacheManager_GetMissing(t *testing.T) {
	cache := newListCache()

	got, ok := cache.Get(context.Background(), "abc")
	require.False(t, ok)
	require.Zero(t, got)
}

func TestInMemoryCacheManager_GetWrongTypeEvicts(t *testing.T) {
	cache := newListCache()
	cache.cache.Set("abc", 123, time.Minute)

	_, ok := cache.Get(context.Background(), "abc")
	require.False(t, ok)
	require.Equal(t, 0, cache.Len())
}

func TestInMemoryCacheManager_ZeroTTLUsesDefault(t *testing.T) {
	cache := NewInMemoryCacheManager[fileHash, string]("short", 20*time.Millisecond, time.Hour)
	cache.Set(context.Background(), "abc", "v", 0)

	_, ok := cache.Get(context.Background(), "abc")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "abc")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefreshExtendsTTL(t *testing.T) {
	cache := NewInMemoryCacheManager[fileHash, string]("refresh", time.Hour, time.Hour)
	cache.Set(context.Background(), "abc", "v", 30*time.Millisecond)

	got, ok := cache.GetWithRefresh(context.Background(), "abc", time.Hour)
	require.True(t, ok)
	require.Equal(t, "v", got)

	time.Sleep(50 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "abc")
	require.True(t, ok)
}

func TestInMemoryCacheManager_GetWithRefreshMissing(t *testing.T) {
	cache := newListCache()

	_, ok := cache.GetWithRefresh(context.Background(), "abc", time.Hour)
	require.False(t, ok)
	require.Equal(t, 0, cache.Len())
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := newListCache()
	ctx := context.Background()
	cache.Set(ctx, "a", cachedList{Episode: "1"}, time.Minute)
	cache.Set(ctx, "b", cachedList{Episode: "2"}, time.Minute)
	cache.Set(ctx, "c", cachedList{Episode: "3"}, time.Minute)

	require.NoError(t, cache.Delete(ctx))
	require.Equal(t, 3, cache.Len())

	require.NoError(t, cache.Delete(ctx, "a", "missing"))
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Flush(ctx))
	require.Equal(t, 0, cache.Len())
}
