/*
engine_test.go - Unit tests for the promo ledger engine

CORE PROPERTIES UNDER TEST:
- 0 <= points_used <= points after every successful operation
- Overdrafts are rejected with the pre-debit remaining and NO mutation
- Creation validates grant positivity and recipient eligibility
- Concurrent debits against one promo serialize (exactly one winner
  when only one can fit)
- Cache lifecycle: populated on update, purged on delete, never on create
*/
package promo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyworks/promo-ledger/cache"
	"github.com/loyaltyworks/promo-ledger/promo"
	"github.com/loyaltyworks/promo-ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*promo.Engine, *memory.Store, *cache.Memory) {
	t.Helper()
	st := memory.New()
	c := cache.NewMemory()
	return promo.NewEngine(st, st, c), st, c
}

func seedUser(t *testing.T, st *memory.Store, id string, admin bool) {
	t.Helper()
	err := st.SaveUser(context.Background(), promo.User{
		ID:       id,
		Username: id,
		Token:    id + "-token",
		Staff:    admin,
	})
	require.NoError(t, err)
}

func pts(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// CREATION TESTS
// =============================================================================

func TestCreate_Valid_StartsWithZeroUsed(t *testing.T) {
	// GIVEN: A non-admin recipient
	// WHEN: Creating a promo with 20 points
	// THEN: The promo persists with points_used = 0 and full remaining

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID, "store assigns the id")

	assert.True(t, p.PointsUsed.IsZero())
	assert.True(t, p.Remaining().Equal(pts(20)))
}

func TestCreate_NonPositivePoints_Rejected(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	for _, points := range []decimal.Decimal{pts(0), pts(-5)} {
		_, err := engine.Create(ctx, "Promo A", points, "user-1")
		assert.ErrorIs(t, err, promo.ErrInvalidAmount, "points %s must be rejected", points)
	}
}

func TestCreate_NonNumericPoints_Rejected(t *testing.T) {
	// The parse step guards the engine: garbage never becomes a decimal.
	_, err := promo.ParsePoints("abc")
	assert.ErrorIs(t, err, promo.ErrInvalidAmount)
}

func TestCreate_AdminRecipient_Rejected(t *testing.T) {
	// GIVEN: A recipient holding administrative privilege
	// WHEN: Creating a promo for them
	// THEN: InvalidRecipient, nothing persisted

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "boss", true)
	ctx := context.Background()

	_, err := engine.Create(ctx, "Promo A", pts(20), "boss")
	assert.ErrorIs(t, err, promo.ErrInvalidRecipient)

	promos, err := st.ListPromos(ctx)
	require.NoError(t, err)
	assert.Empty(t, promos)
}

func TestCreate_UnknownRecipient_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Create(context.Background(), "Promo A", pts(20), "ghost")
	assert.ErrorIs(t, err, promo.ErrInvalidRecipient)
}

func TestCreate_EmptyName_Rejected(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)

	_, err := engine.Create(context.Background(), "  ", pts(20), "user-1")
	assert.ErrorIs(t, err, promo.ErrInvalidName)
}

func TestCreate_DoesNotPopulateCache(t *testing.T) {
	// The cache fills on update only; creation leaves it cold.
	engine, st, c := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	entry, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// =============================================================================
// CONSUME TESTS
// =============================================================================

func TestConsume_Success_ReceiptAndBalance(t *testing.T) {
	// GIVEN: A promo with 20 points
	// WHEN: Consuming 8
	// THEN: Receipt reports the deduction and remaining 12; store agrees

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	receipt, err := engine.Consume(ctx, p.ID, pts(8))
	require.NoError(t, err)

	assert.Equal(t, "Promo A", receipt.PromoName)
	assert.True(t, receipt.Deducted.Equal(pts(8)))
	assert.True(t, receipt.Remaining.Equal(pts(12)))

	stored, err := st.GetPromo(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.PointsUsed.Equal(pts(8)))
}

func TestConsume_Overdraft_NoMutation(t *testing.T) {
	// GIVEN: A promo with 20 points, 8 already used
	// WHEN: Consuming 30
	// THEN: InsufficientBalance reporting remaining 12, points_used unchanged

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	_, err = engine.Consume(ctx, p.ID, pts(8))
	require.NoError(t, err)

	_, err = engine.Consume(ctx, p.ID, pts(30))
	assert.ErrorIs(t, err, promo.ErrInsufficientBalance)

	var ibe *promo.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Remaining.Equal(pts(12)), "error reports the pre-debit ceiling")

	stored, err := st.GetPromo(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.PointsUsed.Equal(pts(8)), "rejected debit must not persist")
}

func TestConsume_NegativeAmount_Rejected(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	_, err = engine.Consume(ctx, p.ID, pts(-3))
	assert.ErrorIs(t, err, promo.ErrInvalidAmount)
}

func TestConsume_ZeroAmount_NoOpDebit(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	receipt, err := engine.Consume(ctx, p.ID, pts(0))
	require.NoError(t, err)
	assert.True(t, receipt.Remaining.Equal(pts(20)))
}

func TestConsume_SequenceKeepsInvariant(t *testing.T) {
	// Drain a promo step by step; the invariant holds after each debit
	// and the drain stops exactly at the grant.

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(10), "user-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := engine.Consume(ctx, p.ID, pts(2))
		require.NoError(t, err)

		stored, err := st.GetPromo(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, stored.PointsUsed.IsNegative())
		assert.False(t, stored.PointsUsed.GreaterThan(stored.Points))
	}

	_, err = engine.Consume(ctx, p.ID, pts(2))
	assert.ErrorIs(t, err, promo.ErrInsufficientBalance, "promo is exhausted")
}

func TestConsume_Concurrent_ExactlyOneWinner(t *testing.T) {
	// GIVEN: points=20, points_used=8 (remaining 12)
	// WHEN: Two concurrent debits of 8 race
	// THEN: Exactly one succeeds; 8+8 cannot both fit into 12

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	_, err = engine.Consume(ctx, p.ID, pts(8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Consume(ctx, p.ID, pts(8))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, rejections int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, promo.ErrInsufficientBalance)
			rejections++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)

	stored, err := st.GetPromo(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.PointsUsed.Equal(pts(16)), "only one debit landed")
}

// =============================================================================
// UPDATE / DELETE TESTS
// =============================================================================

func TestUpdate_WritesThroughCache(t *testing.T) {
	// GIVEN: A created promo (cache cold)
	// WHEN: The admin updates name and points
	// THEN: The cache holds {name, points} - and nothing about points_used

	engine, st, c := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	name := "Promo B"
	points := pts(40)
	updated, err := engine.Update(ctx, p.ID, promo.Patch{Name: &name, Points: &points})
	require.NoError(t, err)
	assert.Equal(t, "Promo B", updated.Name)

	entry, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Promo B", entry.Name)
	assert.True(t, entry.Points.Equal(pts(40)))
}

func TestUpdate_PointsBelowConsumed_Rejected(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	_, err = engine.Consume(ctx, p.ID, pts(15))
	require.NoError(t, err)

	points := pts(10)
	_, err = engine.Update(ctx, p.ID, promo.Patch{Points: &points})
	assert.ErrorIs(t, err, promo.ErrInvalidAmount, "grant cannot drop below consumption")
}

func TestUpdate_AdminRecipient_Rejected(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	seedUser(t, st, "boss", true)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)

	recipient := "boss"
	_, err = engine.Update(ctx, p.ID, promo.Patch{Recipient: &recipient})
	assert.ErrorIs(t, err, promo.ErrInvalidRecipient)
}

func TestDelete_PurgesStoreAndCache(t *testing.T) {
	// GIVEN: An updated promo (cache warm)
	// WHEN: Deleting it
	// THEN: Store lookup is NotFound and the cache entry is gone

	engine, st, c := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	name := "Promo A"
	_, err = engine.Update(ctx, p.ID, promo.Patch{Name: &name})
	require.NoError(t, err)

	require.NoError(t, engine.Delete(ctx, p.ID))

	_, err = st.GetPromo(ctx, p.ID)
	assert.ErrorIs(t, err, promo.ErrPromoNotFound)

	entry, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDelete_Missing_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	err := engine.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, promo.ErrPromoNotFound)
}

// =============================================================================
// READ / LISTING TESTS
// =============================================================================

func TestRemaining_PureRead(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	ctx := context.Background()

	p, err := engine.Create(ctx, "Promo A", pts(20), "user-1")
	require.NoError(t, err)
	_, err = engine.Consume(ctx, p.ID, pts(5))
	require.NoError(t, err)

	got, err := engine.Remaining(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining().Equal(pts(15)))

	// Reading twice changes nothing.
	again, err := engine.Remaining(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, again.Remaining().Equal(pts(15)))
}

func TestList_ScopedByCaller(t *testing.T) {
	// GIVEN: Two promos for two different users
	// WHEN: Listing as admin and as one recipient
	// THEN: Admin sees both; the recipient sees exactly their own

	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "user-1", false)
	seedUser(t, st, "user-2", false)
	seedUser(t, st, "boss", true)
	ctx := context.Background()

	_, err := engine.Create(ctx, "Promo 1", pts(20), "user-1")
	require.NoError(t, err)
	_, err = engine.Create(ctx, "Promo 2", pts(50), "user-2")
	require.NoError(t, err)

	admin, err := st.GetUser(ctx, "boss")
	require.NoError(t, err)
	all, err := engine.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	u1, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	own, err := engine.List(ctx, u1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Promo 1", own[0].Name)
}
