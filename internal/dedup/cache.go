// internal/dedup/cache.go
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"formsync/internal/common/logger"
)

const cacheKeyPrefix = "formsync:delivered:"

// cachedStore layers a Redis membership cache over a durable Store.
// The cache is an optimization only: every cache failure degrades to
// the backing store, and correctness never depends on a cache hit.
type cachedStore struct {
	backing Store
	client  *redis.Client
	ttl     time.Duration
	log     logger.Logger
}

// NewCachedStore wraps backing with a Redis membership cache. A zero
// ttl means cached entries never expire.
func NewCachedStore(backing Store, client *redis.Client, ttl time.Duration, log logger.Logger) Store {
	return &cachedStore{backing: backing, client: client, ttl: ttl, log: log}
}

func (c *cachedStore) Init(ctx context.Context) error {
	return c.backing.Init(ctx)
}

func (c *cachedStore) IsNew(ctx context.Context, recordID string) (bool, error) {
	key := cacheKeyPrefix + recordID

	hit, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.log.Warn("dedup cache lookup failed, falling back to store", map[string]interface{}{
			"record_id": recordID,
			"error":     err.Error(),
		})
	} else if hit > 0 {
		return false, nil
	}

	isNew, err := c.backing.IsNew(ctx, recordID)
	if err != nil {
		return false, err
	}

	if !isNew {
		// backfill so the next cycle skips the store round trip
		if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil {
			c.log.Warn("dedup cache backfill failed", map[string]interface{}{
				"record_id": recordID,
				"error":     err.Error(),
			})
		}
	}
	return isNew, nil
}

func (c *cachedStore) MarkDelivered(ctx context.Context, recordID string) error {
	// durable store first; the cache must never be ahead of it
	if err := c.backing.MarkDelivered(ctx, recordID); err != nil {
		return err
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+recordID, "1", c.ttl).Err(); err != nil {
		c.log.Warn("dedup cache write failed", map[string]interface{}{
			"record_id": recordID,
			"error":     err.Error(),
		})
	}
	return nil
}

func (c *cachedStore) Reset(ctx context.Context) error {
	if err := c.backing.Reset(ctx); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warn("dedup cache invalidation failed", map[string]interface{}{
				"key":   iter.Val(),
				"error": err.Error(),
			})
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("dedup cache scan failed during reset", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}
