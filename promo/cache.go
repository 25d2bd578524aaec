/*
cache.go - Advisory cache interface for promo grant fields

PURPOSE:
  The cache mirrors the static grant fields {name, points} of a promo as
  of its last admin update. It is NON-AUTHORITATIVE and advisory only:
  a cache write failure never rolls back a store mutation, a miss always
  falls back to the store, and balance reads never consult it.

LIFECYCLE (deliberately asymmetric, preserved from the original system):
  - Create:  no cache write (populated lazily on later update)
  - Update:  write-through of {name, points}
  - Delete:  entry purged; purging a missing key is a no-op
  - Consume: never touches the cache (points_used is not cached)

SEE ALSO:
  - engine.go: Triggers cache sync on update/delete
  - cache/memory.go: In-process implementation
  - cache/redis.go: Redis implementation
*/
package promo

import (
	"context"

	"github.com/shopspring/decimal"
)

// CacheEntry holds the cached grant fields. PointsUsed is deliberately
// absent: the cache reflects the grant, not live consumption state.
type CacheEntry struct {
	Name   string          `json:"name"`
	Points decimal.Decimal `json:"points"`
}

// Cache is keyed by promo id. Implementations must treat Delete of a
// missing key as a no-op, not an error.
type Cache interface {
	// Get returns the cached entry, or nil on a miss.
	Get(ctx context.Context, promoID string) (*CacheEntry, error)

	// Set stores the entry for the promo.
	Set(ctx context.Context, promoID string, entry CacheEntry) error

	// Delete purges the entry. Missing keys are a no-op.
	Delete(ctx context.Context, promoID string) error
}
