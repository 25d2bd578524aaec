/*
Package cache provides implementations of the promo.Cache interface.

The cache holds the static grant fields {name, points} of a promo as of
its last admin update. It is advisory only: never consulted for balance
reads, and failures never roll back store mutations.

IMPLEMENTATIONS:
  Memory: in-process map, the default and what tests use
  Redis:  shared cache for multi-instance deployments (redis.go)
*/
package cache

import (
	"context"
	"sync"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// Memory is an in-process promo.Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]promo.CacheEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]promo.CacheEntry)}
}

// Get returns the cached entry, or nil on a miss.
func (m *Memory) Get(_ context.Context, promoID string) (*promo.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[promoID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Set stores the entry for the promo.
func (m *Memory) Set(_ context.Context, promoID string, entry promo.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[promoID] = entry
	return nil
}

// Delete purges the entry. Deleting a missing key is a no-op.
func (m *Memory) Delete(_ context.Context, promoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, promoID)
	return nil
}
