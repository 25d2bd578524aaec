/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements promo.Store and promo.UserStore using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  promos: One row per promo. points and points_used are decimal strings;
          remaining is always derived, never stored.
  users:  Minimal identities - bearer token plus the admin flags.

DEBIT SERIALIZATION:
  Debit and UpdatePromo run SELECT-check-UPDATE inside one database
  transaction, under a per-promo mutex. Two concurrent debits against
  the same promo therefore serialize and cannot both pass the balance
  check on a stale read; different promos never block each other on the
  keyed lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.
  The pool is capped at one connection: SQLite has a single writer
  anyway, and ":memory:" databases are per-connection.

USAGE:
  store, err := sqlite.New("./data/promos.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - promo/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex // per-promo debit locks
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, locks: make(map[string]*sync.Mutex)}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Promos: one row per grant. Balances are decimal strings.
	CREATE TABLE IF NOT EXISTS promos (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		points TEXT NOT NULL,
		points_used TEXT NOT NULL DEFAULT '0',
		recipient TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Listing scope for non-admin callers (hot path)
	CREATE INDEX IF NOT EXISTS idx_promos_recipient
		ON promos(recipient);

	-- Users (caller identities)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		token TEXT NOT NULL UNIQUE,
		staff BOOLEAN NOT NULL DEFAULT FALSE,
		superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
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

// CreatePromo persists a new promo, assigning its ID.
func (s *Store) CreatePromo(ctx context.Context, p promo.Promo) (*promo.Promo, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO promos (id, name, points, points_used, recipient, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Points.String(),
		p.PointsUsed.String(),
		p.Recipient,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create promo: %w", err)
	}
	return &p, nil
}

// GetPromo returns the promo or promo.ErrPromoNotFound.
func (s *Store) GetPromo(ctx context.Context, id string) (*promo.Promo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, points, points_used, recipient, created_at, updated_at
		FROM promos WHERE id = ?
	`, id)
	return scanPromo(row)
}

// ListPromos returns all promos, oldest first.
func (s *Store) ListPromos(ctx context.Context) ([]promo.Promo, error) {
	return s.queryPromos(ctx, `
		SELECT id, name, points, points_used, recipient, created_at, updated_at
		FROM promos ORDER BY created_at ASC, id ASC
	`)
}

// ListPromosByRecipient returns promos issued to one user, oldest first.
func (s *Store) ListPromosByRecipient(ctx context.Context, userID string) ([]promo.Promo, error) {
	return s.queryPromos(ctx, `
		SELECT id, name, points, points_used, recipient, created_at, updated_at
		FROM promos WHERE recipient = ? ORDER BY created_at ASC, id ASC
	`, userID)
}

// UpdatePromo applies a partial update under the per-promo lock.
// Lowering points below points_used is rejected with ErrInvalidAmount.
func (s *Store) UpdatePromo(ctx context.Context, id string, patch promo.Patch) (*promo.Promo, error) {
	l := s.promoLock(id)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPromo(tx.QueryRowContext(ctx, `
		SELECT id, name, points, points_used, recipient, created_at, updated_at
		FROM promos WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Points != nil {
		if patch.Points.LessThan(p.PointsUsed) {
			return nil, fmt.Errorf("points %s below consumed %s: %w",
				patch.Points, p.PointsUsed, promo.ErrInvalidAmount)
		}
		p.Points = *patch.Points
	}
	if patch.Recipient != nil {
		p.Recipient = *patch.Recipient
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE promos SET name = ?, points = ?, recipient = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Points.String(), p.Recipient, p.UpdatedAt.Format(time.RFC3339), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update promo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return p, nil
}

// DeletePromo removes the promo permanently.
func (s *Store) DeletePromo(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM promos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return promo.ErrPromoNotFound
	}

	// The id can never be debited again; drop its lock entry so the
	// map does not grow with every promo ever touched.
	s.lockMu.Lock()
	delete(s.locks, id)
	s.lockMu.Unlock()

	return nil
}

// Debit applies the serialized read-check-write of points_used.
// See the DEBIT CONTRACT in promo/store.go.
func (s *Store) Debit(ctx context.Context, id string, amount decimal.Decimal) (*promo.Promo, error) {
	l := s.promoLock(id)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPromo(tx.QueryRowContext(ctx, `
		SELECT id, name, points, points_used, recipient, created_at, updated_at
		FROM promos WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	remaining := p.Remaining()
	if amount.GreaterThan(remaining) {
		// Rollback via defer; no mutation is persisted.
		return nil, &promo.InsufficientBalanceError{
			PromoID:   id,
			Requested: amount,
			Remaining: remaining,
		}
	}

	p.PointsUsed = p.PointsUsed.Add(amount)
	p.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE promos SET points_used = ?, updated_at = ? WHERE id = ?
	`, p.PointsUsed.String(), p.UpdatedAt.Format(time.RFC3339), id)
	if err != nil {
		return nil, fmt.Errorf("failed to apply debit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}
	return p, nil
}

// =============================================================================
// USER STORE (promo.UserStore interface)
// =============================================================================

// SaveUser inserts or replaces a user record.
func (s *Store) SaveUser(ctx context.Context, u promo.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, username, token, staff, superuser, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			token = excluded.token,
			staff = excluded.staff,
			superuser = excluded.superuser
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Token, u.Staff, u.Superuser,
		u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser returns the user or promo.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*promo.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, token, staff, superuser, created_at
		FROM users WHERE id = ?
	`, id))
}

// GetUserByToken resolves a bearer credential.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*promo.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, token, staff, superuser, created_at
		FROM users WHERE token = ?
	`, token))
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func (s *Store) queryPromos(ctx context.Context, query string, args ...any) ([]promo.Promo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query promos: %w", err)
	}
	defer rows.Close()

	var promos []promo.Promo
	for rows.Next() {
		var (
			p                    promo.Promo
			points, used         string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &points, &used, &p.Recipient, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promo: %w", err)
		}
		if err := fillPromo(&p, points, used, createdAt, updatedAt); err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func scanPromo(row *sql.Row) (*promo.Promo, error) {
	var (
		p                    promo.Promo
		points, used         string
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Name, &points, &used, &p.Recipient, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, promo.ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan promo: %w", err)
	}
	if err := fillPromo(&p, points, used, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func fillPromo(p *promo.Promo, points, used, createdAt, updatedAt string) error {
	var err error
	if p.Points, err = decimal.NewFromString(points); err != nil {
		return fmt.Errorf("corrupt points for promo %s: %w", p.ID, err)
	}
	if p.PointsUsed, err = decimal.NewFromString(used); err != nil {
		return fmt.Errorf("corrupt points_used for promo %s: %w", p.ID, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return nil
}

func scanUser(row *sql.Row) (*promo.User, error) {
	var (
		u         promo.User
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Token, &u.Staff, &u.Superuser, &createdAt)
	if err == sql.ErrNoRows {
		return nil, promo.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}
