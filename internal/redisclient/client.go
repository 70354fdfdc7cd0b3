package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"analytics-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func counterKey(scope, entityID string) string {
	return fmt.Sprintf("counters:%s:%s", scope, entityID)
}

// GetCounters reads the denormalized all-time totals for an entity. A
// missing hash yields zero counters, not an error.
func (c *Client) GetCounters(ctx context.Context, scope, entityID string) (*models.RunningCounters, error) {
	result, err := c.rdb.HGetAll(ctx, counterKey(scope, entityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get counters: %w", err)
	}

	counters := &models.RunningCounters{}
	counters.Views, _ = strconv.ParseInt(result["views"], 10, 64)
	counters.Likes, _ = strconv.ParseInt(result["likes"], 10, 64)
	counters.Purchases, _ = strconv.ParseInt(result["purchases"], 10, 64)
	counters.Revenue, _ = strconv.ParseFloat(result["revenue"], 64)
	return counters, nil
}

// SetCounters overwrites the running counters, used by the reconciliation job
func (c *Client) SetCounters(ctx context.Context, scope, entityID string, counters *models.RunningCounters) error {
	pipe := c.rdb.Pipeline()
	key := counterKey(scope, entityID)
	pipe.HSet(ctx, key, "views", counters.Views)
	pipe.HSet(ctx, key, "likes", counters.Likes)
	pipe.HSet(ctx, key, "purchases", counters.Purchases)
	pipe.HSet(ctx, key, "revenue", counters.Revenue)

	_, err := pipe.Exec(ctx)
	return err
}

// AcquireLock acquires a best-effort distributed lock, used to dedup the
// recurring aggregation enqueue across instances. The aggregation fold is
// idempotent and safe without it.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
