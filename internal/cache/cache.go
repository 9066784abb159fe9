package cache

import (
	"context"
	"sync"
	"time"

	"scoutQuestAPI/internal/types/leaderboard"
)

// BoardCache holds computed leaderboards for a short window. The contract is
// explicit invalidate-on-write: the award path must call Invalidate for every
// scope it touched. Staleness is therefore bounded by the TTL only for
// writes that bypass the engine (manual SQL), which do not happen in normal
// operation.
type BoardCache interface {
	Get(ctx context.Context, key string) (*leaderboard.Board, bool)
	Set(ctx context.Context, key string, board *leaderboard.Board, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

type memoryEntry struct {
	board     *leaderboard.Board
	expiresAt time.Time
}

// MemoryCache is the in-process backend, used when no REDIS_URL is
// configured and in tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*leaderboard.Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.board, true
}

func (c *MemoryCache) Set(_ context.Context, key string, board *leaderboard.Board, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &memoryEntry{board: board, expiresAt: time.Now().Add(ttl)}
}

func (c *MemoryCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Sweep drops expired entries once a minute until ctx is done.
func (c *MemoryCache) Sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
