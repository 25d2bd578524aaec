/*
engine.go - The promo ledger engine

PURPOSE:
  All numeric and state transitions on a Promo, independent of transport.
  The engine validates inputs, delegates serialized balance mutations to
  the store, and keeps the advisory cache in sync on update/delete.

OPERATIONS:
  Create    Validate grant and recipient, persist with points_used = 0
  Update    Partial admin update; write-through cache of {name, points}
  Delete    Permanent removal; cache entry purged
  Remaining Pure balance read (points - points_used), never from cache
  Consume   Serialized per-promo debit; rejects overdrafts untouched
  List      Query-time scoping: admins see all, others their own promos

INVARIANT:
  0 <= points_used <= points after every successful operation. The
  overdraft check itself lives behind Store.Debit so it runs under the
  store's per-promo serialization (see store.go DEBIT CONTRACT).

CACHE:
  Best-effort. A cache failure after a successful store mutation is
  logged and swallowed; the store mutation stands.

SEE ALSO:
  - policy.go: Authorization (the engine assumes an authorized caller)
  - store.go: Persistence contract
  - api/handlers.go: HTTP façade over this engine
*/
package promo

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
)

// Engine enforces balance invariants and input validation for promos.
type Engine struct {
	store Store
	users UserStore
	cache Cache
}

// NewEngine creates a ledger engine. All three collaborators are
// required; use cache.NewMemory() when no shared cache is configured.
func NewEngine(store Store, users UserStore, cache Cache) *Engine {
	return &Engine{store: store, users: users, cache: cache}
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates and persists a new promo with points_used = 0.
// The grant must be a positive finite number and the recipient a
// non-admin user. No cache write happens on create: the cache is
// populated on later updates only.
func (e *Engine) Create(ctx context.Context, name string, points decimal.Decimal, recipientID string) (*Promo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if !points.IsPositive() {
		return nil, fmt.Errorf("points %s: %w", points, ErrInvalidAmount)
	}
	if err := e.checkRecipient(ctx, recipientID); err != nil {
		return nil, err
	}

	return e.store.CreatePromo(ctx, Promo{
		Name:       name,
		Points:     points,
		PointsUsed: decimal.Zero,
		Recipient:  recipientID,
	})
}

// checkRecipient enforces the creation-time rule: a promo recipient is
// always an existing, non-administrative account.
func (e *Engine) checkRecipient(ctx context.Context, userID string) error {
	u, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("recipient %q: %w", userID, ErrInvalidRecipient)
		}
		return err
	}
	if u.IsAdministrator() {
		return fmt.Errorf("recipient %q is an administrator: %w", userID, ErrInvalidRecipient)
	}
	return nil
}

// =============================================================================
// READ
// =============================================================================

// Get returns the promo or ErrPromoNotFound. Always served from the
// store; the cache is never on the read path.
func (e *Engine) Get(ctx context.Context, id string) (*Promo, error) {
	return e.store.GetPromo(ctx, id)
}

// List returns the promos visible to the caller. Administrators see
// everything; other callers see only promos issued to them. This is a
// query-time filter, not an authorization denial.
func (e *Engine) List(ctx context.Context, caller *User) ([]Promo, error) {
	if CanListAll(caller) {
		return e.store.ListPromos(ctx)
	}
	return e.store.ListPromosByRecipient(ctx, caller.ID)
}

// Remaining returns the promo for a balance read. The remaining amount
// is derived via Promo.Remaining(); nothing is mutated or cached.
func (e *Engine) Remaining(ctx context.Context, id string) (*Promo, error) {
	return e.store.GetPromo(ctx, id)
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// Update applies a partial admin update. Only name, points and recipient
// are mutable; points_used never moves through this path. On success the
// cache entry {name, points} is written through.
func (e *Engine) Update(ctx context.Context, id string, patch Patch) (*Promo, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, ErrInvalidName
	}
	if patch.Points != nil && !patch.Points.IsPositive() {
		return nil, fmt.Errorf("points %s: %w", patch.Points, ErrInvalidAmount)
	}
	if patch.Recipient != nil {
		if err := e.checkRecipient(ctx, *patch.Recipient); err != nil {
			return nil, err
		}
	}

	// The store re-checks points >= points_used under the per-promo lock,
	// so a concurrent debit cannot slip the grant below consumption.
	updated, err := e.store.UpdatePromo(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, updated.ID, CacheEntry{Name: updated.Name, Points: updated.Points}); err != nil {
		log.Printf("promo %s: cache write failed (ignored): %v", updated.ID, err)
	}
	return updated, nil
}

// Delete permanently removes the promo and purges its cache entry.
// Purging a missing cache key is a no-op.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.DeletePromo(ctx, id); err != nil {
		return err
	}
	if err := e.cache.Delete(ctx, id); err != nil {
		log.Printf("promo %s: cache purge failed (ignored): %v", id, err)
	}
	return nil
}

// =============================================================================
// CONSUME - The race-sensitive operation
// =============================================================================

// Consume debits amount from the promo. The amount must be non-negative.
// The read-check-write of points_used is serialized per promo id by the
// store: either the debit lands with the invariant intact, or the promo
// is left untouched and an *InsufficientBalanceError reporting the
// pre-debit remaining comes back.
func (e *Engine) Consume(ctx context.Context, id string, amount decimal.Decimal) (*Receipt, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount %s: %w", amount, ErrInvalidAmount)
	}

	updated, err := e.store.Debit(ctx, id, amount)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		PromoID:   updated.ID,
		PromoName: updated.Name,
		Deducted:  amount,
		Remaining: updated.Remaining(),
	}, nil
}
