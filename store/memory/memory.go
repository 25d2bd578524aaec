/*
Package memory provides an in-memory implementation of the storage
interfaces, for tests and local development.

DEBIT SERIALIZATION:
  Debit and UpdatePromo take a per-promo mutex before touching the
  record, so concurrent debits against one promo serialize while
  operations on different promos proceed independently. This mirrors
  the contract in promo/store.go.

SEE ALSO:
  - promo/store.go: Interface definitions
  - store/sqlite/sqlite.go: Production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// Store implements promo.Store and promo.UserStore in memory.
type Store struct {
	mu     sync.RWMutex
	promos map[string]promo.Promo
	users  map[string]promo.User
	tokens map[string]string // token -> user id

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex // per-promo debit locks
}

func New() *Store {
	return &Store{
		promos: make(map[string]promo.Promo),
		users:  make(map[string]promo.User),
		tokens: make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

// promoLock returns the mutex serializing mutations of one promo.
func (s *Store) promoLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// =============================================================================
// PROMO STORE (promo.Store interface)
// =============================================================================

func (s *Store) CreatePromo(_ context.Context, p promo.Promo) (*promo.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.promos[p.ID] = p
	return &p, nil
}

func (s *Store) GetPromo(_ context.Context, id string) (*promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.promos[id]
	if !ok {
		return nil, promo.ErrPromoNotFound
	}
	return &p, nil
}

func (s *Store) ListPromos(_ context.Context) ([]promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]promo.Promo, 0, len(s.promos))
	for _, p := range s.promos {
		out = append(out, p)
	}
	sortPromos(out)
	return out, nil
}

func (s *Store) ListPromosByRecipient(_ context.Context, userID string) ([]promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []promo.Promo
	for _, p := range s.promos {
		if p.Recipient == userID {
			out = append(out, p)
		}
	}
	sortPromos(out)
	return out, nil
}

func (s *Store) UpdatePromo(_ context.Context, id string, patch promo.Patch) (*promo.Promo, error) {
	l := s.promoLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[id]
	if !ok {
		return nil, promo.ErrPromoNotFound
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Points != nil {
		// The grant can never drop below what is already consumed.
		if patch.Points.LessThan(p.PointsUsed) {
			return nil, promo.ErrInvalidAmount
		}
		p.Points = *patch.Points
	}
	if patch.Recipient != nil {
		p.Recipient = *patch.Recipient
	}
	p.UpdatedAt = time.Now().UTC()

	s.promos[id] = p
	return &p, nil
}

func (s *Store) DeletePromo(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.promos[id]; !ok {
		s.mu.Unlock()
		return promo.ErrPromoNotFound
	}
	delete(s.promos, id)
	s.mu.Unlock()

	// The id can never be debited again; drop its lock entry so the
	// map does not grow with every promo ever touched.
	s.lockMu.Lock()
	delete(s.locks, id)
	s.lockMu.Unlock()
	return nil
}

// Debit applies the serialized read-check-write of points_used.
func (s *Store) Debit(_ context.Context, id string, amount decimal.Decimal) (*promo.Promo, error) {
	l := s.promoLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[id]
	if !ok {
		return nil, promo.ErrPromoNotFound
	}

	remaining := p.Remaining()
	if amount.GreaterThan(remaining) {
		return nil, &promo.InsufficientBalanceError{
			PromoID:   id,
			Requested: amount,
			Remaining: remaining,
		}
	}

	p.PointsUsed = p.PointsUsed.Add(amount)
	p.UpdatedAt = time.Now().UTC()
	s.promos[id] = p
	return &p, nil
}

// =============================================================================
// USER STORE (promo.UserStore interface)
// =============================================================================

func (s *Store) SaveUser(_ context.Context, u promo.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if old, ok := s.users[u.ID]; ok {
		delete(s.tokens, old.Token)
	}
	s.users[u.ID] = u
	s.tokens[u.Token] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*promo.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, promo.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByToken(_ context.Context, token string) (*promo.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return nil, promo.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func sortPromos(ps []promo.Promo) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}
