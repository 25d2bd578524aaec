/*
errors.go - Centralized error types for the promo ledger

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes; nothing else should inspect
  error strings.

ERROR CATEGORIES:
  1. Validation errors - Bad input (amount, name, recipient)
  2. Balance errors    - Debit exceeds remaining points
  3. Lookup errors     - Missing promo or user
  4. Authorization     - Caller not allowed

USAGE:
  if errors.Is(err, promo.ErrInsufficientBalance) { ... }

  var ibe *promo.InsufficientBalanceError
  if errors.As(err, &ibe) {
      // ibe.Remaining is the pre-debit ceiling
  }

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package promo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a point amount is not a positive
	// finite number (creation) or not parseable as a number at all.
	ErrInvalidAmount = errors.New("points should be a positive number")

	// ErrInvalidName is returned when a promo name is empty.
	ErrInvalidName = errors.New("promo name must not be empty")

	// ErrInvalidRecipient is returned when the recipient holds
	// administrative privilege, or does not exist.
	ErrInvalidRecipient = errors.New("recipient must be a non-admin user")

	// ErrInsufficientBalance is returned when a debit exceeds the
	// remaining points. The promo is left untouched.
	ErrInsufficientBalance = errors.New("insufficient points")

	// ErrPromoNotFound is returned when a referenced promo does not exist.
	ErrPromoNotFound = errors.New("promo not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrForbidden is returned when the caller is authenticated but not
	// allowed to perform the operation. Kept distinct from validation
	// errors so clients can tell "bad input" from "not allowed".
	ErrForbidden = errors.New("forbidden")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a rejected debit. Remaining is the
// balance before the attempted debit, so the caller knows the ceiling.
type InsufficientBalanceError struct {
	PromoID   string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient points on promo %s: requested %s, only %s left",
		e.PromoID, e.Requested, e.Remaining)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPromoNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
