// Package cache is the Redis-backed side cache for computed compliance
// rates. The aggregation core never sees it: the service checks the cache
// first and recomputes on a miss, so a cold or absent Redis only costs
// latency, never correctness.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"certrail/internal/platform/redis"
	id "certrail/pkg/domain"
)

type RateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a RateCache, or nil when Redis is not configured. A nil
// RateCache is valid and always misses.
func New(client *redis.Client, ttl time.Duration) *RateCache {
	if client == nil {
		return nil
	}
	return &RateCache{client: client, ttl: ttl}
}

func key(subjectID id.SubjectID) string {
	return "compliance:rate:" + subjectID.String()
}

// Get returns the cached rate and whether it was present. Errors degrade to
// a miss.
func (c *RateCache) Get(ctx context.Context, subjectID id.SubjectID) (int, bool) {
	if c == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, key(subjectID)).Result()
	if errors.Is(err, goredis.Nil) || err != nil {
		return 0, false
	}
	rate, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return rate, true
}

// Set stores the rate under the configured TTL.
func (c *RateCache) Set(ctx context.Context, subjectID id.SubjectID, rate int) error {
	if c == nil {
		return nil
	}
	if err := c.client.Set(ctx, key(subjectID), strconv.Itoa(rate), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache compliance rate: %w", err)
	}
	return nil
}

// Invalidate drops the cached rate, typically after a lifecycle transition.
func (c *RateCache) Invalidate(ctx context.Context, subjectID id.SubjectID) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(subjectID)).Err(); err != nil {
		return fmt.Errorf("invalidate compliance rate: %w", err)
	}
	return nil
}
