package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSummaryCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSummaryCache(client, 15*time.Minute), mr
}

func TestSummaryCache_SetAndGet(t *testing.T) {
	cache, _ := newTestSummaryCache(t)
	ctx := context.Background()

	summary := ReviewSummary{
		ProductID:          "P1",
		AverageRating:      4.0,
		TotalReviews:       2,
		RatingDistribution: map[int]int{5: 1, 4: 0, 3: 1, 2: 0, 1: 0},
	}
	require.NoError(t, cache.Set(ctx, summary))

	got, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, summary, *got)
}

func TestSummaryCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestSummaryCache(t)

	got, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryCache_Invalidate(t *testing.T) {
	cache, _ := newTestSummaryCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, ReviewSummary{ProductID: "P1", TotalReviews: 1}))
	require.NoError(t, cache.Invalidate(ctx, "P1"))

	got, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestSummaryCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, ReviewSummary{ProductID: "P1", TotalReviews: 1}))

	mr.FastForward(16 * time.Minute)

	got, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
