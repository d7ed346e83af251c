// Package redis caches scenario run results keyed by scenario digest,
// so repeated runs of an unchanged scenario skip propagation entirely.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/econlab/ripple/pkg/scenario"
)

const digestsSet = "ripple:scenarios"

// ResultCache is a best-effort cache: failures are logged and treated
// as misses, never surfaced to the caller.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache wraps a redis client. A zero ttl keeps entries forever.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) makeKey(digest string) string {
	return fmt.Sprintf("ripple:scenario:%s", digest)
}

// Set stores a scenario result under its digest.
func (c *ResultCache) Set(ctx context.Context, digest string, res *scenario.Result) {
	key := c.makeKey(digest)
	data, err := json.Marshal(res)
	if err != nil {
		log.Printf("Failed to marshal result for %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Failed to SET key %s: %v", key, err)
		return
	}
	if err := c.client.SAdd(ctx, digestsSet, digest).Err(); err != nil {
		log.Printf("Failed to SADD digest %s: %v", digest, err)
	}
}

// Get returns the cached result for a digest, or false on a miss.
func (c *ResultCache) Get(ctx context.Context, digest string) (*scenario.Result, bool) {
	key := c.makeKey(digest)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to GET key %s: %v", key, err)
		}
		return nil, false
	}
	var res scenario.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		log.Printf("Failed to unmarshal result from key %s: %v", key, err)
		return nil, false
	}
	return &res, true
}

// Digests lists the digests currently tracked in the cache set. Entries
// may have expired; Get remains the source of truth.
func (c *ResultCache) Digests(ctx context.Context) []string {
	digests, err := c.client.SMembers(ctx, digestsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s: %v", digestsSet, err)
		return nil
	}
	return digests
}

// Clear drops all cached results and the tracking set.
func (c *ResultCache) Clear(ctx context.Context) {
	digests, err := c.client.SMembers(ctx, digestsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s during clear: %v", digestsSet, err)
		return
	}
	if len(digests) > 0 {
		keys := make([]string, len(digests))
		for i, d := range digests {
			keys[i] = c.makeKey(d)
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			log.Printf("Failed to DEL keys: %v", err)
		}
	}
	if err := c.client.Del(ctx, digestsSet).Err(); err != nil {
		log.Printf("Failed to DEL set %s: %v", digestsSet, err)
	}
}
