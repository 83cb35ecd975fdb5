package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mpv-danmaku/internal/mocks"
)

type lookup struct {
	Hash string
	Name string
}

func hashKey(in lookup) string { return in.Hash }

func loadOnce(calls *int, err error) LoadFunc[[]string, lookup] {
	return func(_ context.Context, in lookup) ([]string, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return []string{in.Name}, nil
	}
}

func TestReadThroughCache_Hit(t *testing.T) {
	cache := mocks.NewMockCacheManager[string, []string](t)
	cache.EXPECT().Get(mock.Anything, "h1").Return([]string{"cached"}, true)

	var calls int
	rt := NewReadThroughCache(cache, hashKey, loadOnce(&calls, nil), time.Hour)

	got, hit, err := rt.Get(context.Background(), lookup{Hash: "h1", Name: "fresh"})
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []string{"cached"}, got)
	require.Zero(t, calls)
}

func TestReadThroughCache_MissStoresLoadedValue(t *testing.T) {
	cache := mocks.NewMockCacheManager[string, []string](t)
	cache.EXPECT().Get(mock.Anything, "h1").Return(nil, false)
	cache.EXPECT().Set(mock.Anything, "h1", []string{"fresh"}, time.Hour).Return()

	var calls int
	rt := NewReadThroughCache(cache, hashKey, loadOnce(&calls, nil), time.Hour)

	got, hit, err := rt.Get(context.Background(), lookup{Hash: "h1", Name: "fresh"})
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, []string{"fresh"}, got)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_LoadErrorNotCached(t *testing.T) {
	cache := mocks.NewMockCacheManager[string, []string](t)
	cache.EXPECT().Get(mock.Anything, "h1").Return(nil, false)

	var calls int
	rt := NewReadThroughCache(cache, hashKey, loadOnce(&calls, errors.New("api down")), time.Hour)

	_, _, err := rt.Get(context.Background(), lookup{Hash: "h1"})
	require.EqualError(t, err, "api down")
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReadThroughCache_RefreshUsesGetWithRefresh(t *testing.T) {
	cache := mocks.NewMockCacheManager[string, []string](t)
	cache.EXPECT().GetWithRefresh(mock.Anything, "h1", time.Hour).Return([]string{"cached"}, true)

	var calls int
	rt := NewReadThroughCache(cache, hashKey, loadOnce(&calls, nil), time.Hour, WithRefresh())

	got, hit, err := rt.Get(context.Background(), lookup{Hash: "h1"})
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []string{"cached"}, got)
}

func TestReadThroughCache_BypassNeverTouchesCache(t *testing.T) {
	cache := mocks.NewMockCacheManager[string, []string](t)

	var calls int
	rt := NewReadThroughCache(cache, hashKey, loadOnce(&calls, nil), time.Hour, WithBypass(true))

	got, hit, err := rt.Get(context.Background(), lookup{Hash: "h1", Name: "fresh"})
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, []string{"fresh"}, got)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_WithInMemoryManager(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("comments", DefaultExpiration, DefaultCleanupInterval)

	var calls int
	rt := NewReadThroughCache[string, []string, lookup](cache, hashKey, loadOnce(&calls, nil), time.Hour)

	for range 3 {
		got, _, err := rt.Get(context.Background(), lookup{Hash: "h1", Name: "ep"})
		require.NoError(t, err)
		require.Equal(t, []string{"ep"}, got)
	}
	require.Equal(t, 1, calls)
}
