package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hangarshare/internal/entities"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache keeps recently computed occupied-range listings in Redis.
// It only ever serves the public calendar query; booking decisions always go
// to the database. A per-hangar version counter makes invalidation a single
// INCR instead of a key scan.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) Get(ctx context.Context, hangarID int64, from, to time.Time) ([]entities.OccupiedRange, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.rangeKey(ctx, hangarID, from, to)
	if err != nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var ranges []entities.OccupiedRange
	if err := json.Unmarshal([]byte(val), &ranges); err != nil {
		return nil, false
	}
	return ranges, true
}

func (c *AvailabilityCache) Set(ctx context.Context, hangarID int64, from, to time.Time, ranges []entities.OccupiedRange) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.rangeKey(ctx, hangarID, from, to)
	if err != nil {
		return
	}
	data, err := json.Marshal(ranges)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, c.ttl)
}

// Invalidate bumps the hangar's version so all cached windows go stale.
func (c *AvailabilityCache) Invalidate(ctx context.Context, hangarID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, versionKey(hangarID))
}

func (c *AvailabilityCache) rangeKey(ctx context.Context, hangarID int64, from, to time.Time) (string, error) {
	ver, err := c.client.Get(ctx, versionKey(hangarID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("avail:%d:%d:%d:%d", hangarID, ver, from.Unix(), to.Unix()), nil
}

func versionKey(hangarID int64) string {
	return fmt.Sprintf("avail:ver:%d", hangarID)
}
