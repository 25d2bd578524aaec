/*
store.go - Persistence interfaces for promos and users

PURPOSE:
  Defines the interface between the ledger engine and the database.
  Implementations: store/sqlite (production) and store/memory (tests/dev).

DEBIT CONTRACT:
  Debit is the one race-sensitive write. Implementations MUST serialize
  the read-check-write of points_used per promo id, so two concurrent
  debits cannot both pass the balance check against a stale read. On
  rejection the promo is left untouched and an *InsufficientBalanceError
  carrying the pre-debit remaining is returned. Operations on different
  promo ids must not block each other.

NOT FOUND:
  Lookups return ErrPromoNotFound / ErrUserNotFound rather than nil
  records, so callers never branch on nil.

SEE ALSO:
  - engine.go: Uses these interfaces
  - store/sqlite/sqlite.go: SQLite implementation
  - store/memory/memory.go: In-memory implementation
*/
package promo

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROMO STORE
// =============================================================================

// Store handles durable persistence of promo records.
type Store interface {
	// CreatePromo persists a new promo and assigns its ID.
	CreatePromo(ctx context.Context, p Promo) (*Promo, error)

	// GetPromo returns the promo or ErrPromoNotFound.
	GetPromo(ctx context.Context, id string) (*Promo, error)

	// ListPromos returns all promos.
	ListPromos(ctx context.Context) ([]Promo, error)

	// ListPromosByRecipient returns promos issued to one user.
	ListPromosByRecipient(ctx context.Context, userID string) ([]Promo, error)

	// UpdatePromo applies a partial update. PointsUsed is untouchable
	// through this path; lowering Points below PointsUsed fails with
	// ErrInvalidAmount. The check runs under the same per-promo
	// serialization as Debit.
	UpdatePromo(ctx context.Context, id string, patch Patch) (*Promo, error)

	// DeletePromo removes the promo permanently. No soft-delete.
	DeletePromo(ctx context.Context, id string) error

	// Debit atomically adds amount to PointsUsed iff the result does not
	// exceed Points, returning the updated promo. See DEBIT CONTRACT.
	Debit(ctx context.Context, id string, amount decimal.Decimal) (*Promo, error)
}

// =============================================================================
// USER STORE
// =============================================================================

// UserStore resolves caller identities and promo recipients.
type UserStore interface {
	// SaveUser inserts or replaces a user record.
	SaveUser(ctx context.Context, u User) error

	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByToken resolves a bearer credential, or ErrUserNotFound.
	GetUserByToken(ctx context.Context, token string) (*User, error)
}
