// Package memory is an in-process storage adapter. It implements every
// repository port on plain maps, with a transactor that takes per-user row
// locks and applies writes only on commit, so checkout can be exercised end to
// end without PostgreSQL.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("memory: transaction already closed")

// Store holds all tables. The zero value is not usable; call NewStore.
type Store struct {
	mu sync.Mutex

	users     map[uuid.UUID]domain.User
	wallets   map[uuid.UUID]domain.Wallet
	cart      map[uuid.UUID][]domain.CartLine
	ledger    []domain.LedgerEntry
	idemp     map[string]domain.IdempotencyLog
	menu      []domain.MenuItem
	profiles  map[uuid.UUID]domain.UserProfile
	favorites map[uuid.UUID][]domain.Favorite
	outbox    []domain.OutboxEvent
	audit     []domain.AuditLog

	rowLocks map[uuid.UUID]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]domain.User),
		wallets:   make(map[uuid.UUID]domain.Wallet),
		cart:      make(map[uuid.UUID][]domain.CartLine),
		idemp:     make(map[string]domain.IdempotencyLog),
		profiles:  make(map[uuid.UUID]domain.UserProfile),
		favorites: make(map[uuid.UUID][]domain.Favorite),
		rowLocks:  make(map[uuid.UUID]chan struct{}),
	}
}

// lockUser blocks until the user's row lock is free or ctx is done.
func (s *Store) lockUser(ctx context.Context, userID uuid.UUID) (chan struct{}, error) {
	s.mu.Lock()
	l, ok := s.rowLocks[userID]
	if !ok {
		l = make(chan struct{}, 1)
		s.rowLocks[userID] = l
	}
	s.mu.Unlock()

	select {
	case l <- struct{}{}:
		return l, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrLockTimeout, ctx.Err())
	}
}

// write applies op now when tx is nil, otherwise stages it for commit.
func (s *Store) write(tx pgx.Tx, op func()) error {
	if mt, ok := tx.(*Tx); ok && mt != nil {
		return mt.stage(op)
	}
	s.mu.Lock()
	op()
	s.mu.Unlock()
	return nil
}

// Transactor implements ports.DBTransactor.
type Transactor struct {
	store *Store
}

// NewTransactor creates a transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a transaction.
func (t *Transactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &Tx{store: t.store}, nil
}

// Tx buffers writes until Commit and releases row locks when it ends.
// Methods not listed here panic through the nil embedded pgx.Tx.
type Tx struct {
	pgx.Tx

	store *Store
	mu    sync.Mutex
	ops   []func()
	held  map[uuid.UUID]chan struct{}
	done  bool
}

// lock takes the row lock of userID for the rest of the transaction.
func (t *Tx) lock(ctx context.Context, userID uuid.UUID) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxClosed
	}
	_, owned := t.held[userID]
	t.mu.Unlock()
	if owned {
		return nil
	}

	l, err := t.store.lockUser(ctx, userID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		<-l
		return ErrTxClosed
	}
	if t.held == nil {
		t.held = make(map[uuid.UUID]chan struct{})
	}
	t.held[userID] = l
	return nil
}

func (t *Tx) stage(op func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxClosed
	}
	t.ops = append(t.ops, op)
	return nil
}

// Commit applies the staged writes atomically.
func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxClosed
	}

	t.store.mu.Lock()
	for _, op := range t.ops {
		op()
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.ops = nil
	for _, l := range t.held {
		<-l
	}
	t.held = nil
}

// Exec accepts any statement; the memory store has no session settings.
func (t *Tx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
