package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"scoutQuestAPI/internal/types/leaderboard"
)

// RedisCache is the shared backend, selected when REDIS_URL is set so that
// multiple API instances serve the same cached boards. Cache errors are
// treated as misses; the leaderboard is always recomputable from Postgres.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*leaderboard.Board, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("RedisCache: get %s failed: %v", key, err)
		}
		return nil, false
	}

	var board leaderboard.Board
	if err := json.Unmarshal(raw, &board); err != nil {
		log.Printf("RedisCache: corrupt entry at %s: %v", key, err)
		c.client.Del(ctx, key)
		return nil, false
	}
	return &board, true
}

func (c *RedisCache) Set(ctx context.Context, key string, board *leaderboard.Board, ttl time.Duration) {
	raw, err := json.Marshal(board)
	if err != nil {
		log.Printf("RedisCache: marshal %s failed: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("RedisCache: set %s failed: %v", key, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("RedisCache: invalidate failed: %v", err)
	}
}
