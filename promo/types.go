/*
Package promo provides the core promotional-points ledger.

PURPOSE:
  This package contains the domain model and balance logic for promos:
  named point grants issued by administrators to non-admin users. The
  recipient (or an administrator) consumes points against a promo until
  it is exhausted.

KEY CONCEPTS IN THIS FILE (types.go):
  - Promo: A named grant of points to exactly one recipient
  - User: The minimal caller identity (token, admin capability)
  - Receipt: Confirmation of a successful debit
  - Patch: Partial update applied by administrators

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all point arithmetic
  2. Derived balance: remaining = points - points_used, never persisted
  3. Single admin capability: staff/superuser collapse into IsAdministrator

SEE ALSO:
  - engine.go: Balance transitions (create, update, consume, delete)
  - policy.go: Authorization predicates
  - store.go: Persistence interfaces
*/
package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROMO - A named grant of points to one recipient
// =============================================================================

// Promo is the sole ledger entity. Points is the total grant, PointsUsed
// the cumulative debits. Invariant after every successful operation:
// 0 <= PointsUsed <= Points.
type Promo struct {
	ID         string
	Name       string
	Points     decimal.Decimal
	PointsUsed decimal.Decimal
	Recipient  string // user ID of the receiving account, always non-admin

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the points still available on the promo.
// Always computed, never stored.
func (p *Promo) Remaining() decimal.Decimal {
	return p.Points.Sub(p.PointsUsed)
}

// Patch describes a partial admin update. Nil fields are left untouched.
// PointsUsed is deliberately absent: it only moves through Engine.Consume.
type Patch struct {
	Name      *string
	Points    *decimal.Decimal
	Recipient *string
}

// =============================================================================
// USER - Minimal caller identity
// =============================================================================

// User is the authenticated caller. The promo system does not manage
// accounts; it only needs a credential to authenticate and the admin
// capability to authorize.
type User struct {
	ID        string
	Username  string
	Token     string // bearer credential
	Staff     bool
	Superuser bool

	CreatedAt time.Time
}

// IsAdministrator reports whether the user holds elevated privilege.
// Staff and superuser are a single OR'd admin signal. A nil user is
// never an administrator, so the policy predicates treat an absent
// caller as unauthorized instead of panicking.
func (u *User) IsAdministrator() bool {
	if u == nil {
		return false
	}
	return u.Staff || u.Superuser
}

// =============================================================================
// RECEIPT - Confirmation of a successful debit
// =============================================================================

type Receipt struct {
	PromoID   string
	PromoName string
	Deducted  decimal.Decimal
	Remaining decimal.Decimal // balance after the debit
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// ParsePoints parses a caller-supplied point amount. It accepts anything
// decimal.NewFromString does (plain decimal numbers); NaN, infinities and
// garbage all fail.
func ParsePoints(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
