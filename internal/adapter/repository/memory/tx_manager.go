package memory

import (
	"context"
	"errors"

	"github.com/iho/fxledger/internal/usecase"
)

var (
	// ErrNoUnitOfWork is returned when a mutation is attempted outside a unit of work.
	ErrNoUnitOfWork = errors.New("memory: mutation requires an active unit of work")
	// ErrTxDone is returned when committing a finished unit of work.
	ErrTxDone = errors.New("memory: unit of work already finished")
)

// TxManager implements usecase.TransactionManager over a Store.
// Units of work are serialized: Begin blocks until the previous one finishes.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new unit of work and takes the store's write lock.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.mu.Lock()
	return &Tx{store: m.store}, nil
}

// Tx journals undo actions for a unit of work.
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

// Commit keeps every mutation and releases the write lock.
// A cancelled context rolls the unit back instead.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		t.rollback()
		return err
	}

	t.undo = nil
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// Rollback undoes every mutation in reverse order. It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.rollback()
	return nil
}

func (t *Tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	t.store.mu.Unlock()
}

func (t *Tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func unitOf(tx usecase.Transaction) (*Tx, error) {
	u, ok := tx.(*Tx)
	if !ok || u == nil || u.done {
		return nil, ErrNoUnitOfWork
	}
	return u, nil
}
