package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutQuestAPI/internal/types/leaderboard"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok := c.Get(ctx, "leaderboard:global")
	assert.False(t, ok)

	board := &leaderboard.Board{TotalScouts: 3}
	c.Set(ctx, "leaderboard:global", board, time.Minute)

	got, ok := c.Get(ctx, "leaderboard:global")
	require.True(t, ok)
	assert.Same(t, board, got)
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, "k", &leaderboard.Board{}, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok, "entry past its TTL reads as a miss")
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, "leaderboard:global", &leaderboard.Board{}, time.Minute)
	c.Set(ctx, "leaderboard:group:g1", &leaderboard.Board{}, time.Minute)
	c.Set(ctx, "leaderboard:group:g2", &leaderboard.Board{}, time.Minute)

	c.Invalidate(ctx, "leaderboard:global", "leaderboard:group:g1", "leaderboard:group:missing")

	_, ok := c.Get(ctx, "leaderboard:global")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "leaderboard:group:g1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "leaderboard:group:g2")
	assert.True(t, ok, "untouched scopes survive invalidation")
}
