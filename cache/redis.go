/*
redis.go - Redis-backed promo cache

Entries are JSON-encoded under "promo_data_<id>". Like every promo.Cache
implementation this is advisory only: the engine logs and ignores
failures, and balance reads never touch it.
*/
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// Redis is a shared promo.Cache for multi-instance deployments.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at addr (host:port).
func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func redisKey(promoID string) string {
	return "promo_data_" + promoID
}

// Get returns the cached entry, or nil on a miss.
func (r *Redis) Get(ctx context.Context, promoID string) (*promo.CacheEntry, error) {
	b, err := r.client.Get(ctx, redisKey(promoID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry promo.CacheEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("cache get: corrupt entry for %s: %w", promoID, err)
	}
	return &entry, nil
}

// Set stores the entry for the promo. No TTL: entries live until the
// promo is deleted or overwritten by the next update.
func (r *Redis) Set(ctx context.Context, promoID string, entry promo.CacheEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(promoID), b, 0).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete purges the entry. DEL of a missing key is already a no-op.
func (r *Redis) Delete(ctx context.Context, promoID string) error {
	if err := r.client.Del(ctx, redisKey(promoID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
