package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimetableKey(t *testing.T) {
	assert.Equal(t, "timetable:tt-1:v3", TimetableKey("tt-1", 3))
	assert.Equal(t, "timetable:tt-1:v3:view:class:-", TimetableKey("tt-1", 3, "view", "class", ""))
}

func TestCacheServiceHitMissAndInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, TimetableKey("tt-1", 1, "view"), &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, TimetableKey("tt-1", 1, "view"), []string{"MATH"}, 0))
	require.NoError(t, cache.Set(ctx, TimetableKey("tt-10", 1, "view"), []string{"ENG"}, 0))
	hit, err = cache.Get(ctx, TimetableKey("tt-1", 1, "view"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"MATH"}, out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)

	require.NoError(t, cache.InvalidateTimetable(ctx, "tt-1"))
	hit, err = cache.Get(ctx, TimetableKey("tt-1", 1, "view"), &out)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = cache.Get(ctx, TimetableKey("tt-10", 1, "view"), &out)
	require.NoError(t, err)
	assert.True(t, hit, "prefix of tt-1 must not cover tt-10")
}

func TestCacheServiceDisabled(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}
