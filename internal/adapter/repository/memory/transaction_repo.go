package memory

import (
	"context"
	"iter"
	"slices"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository as an append-only log.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Append validates and stores a transaction.
func (r *TransactionRepository) Append(_ context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}
	if t.ID == "" {
		return domain.NewValidationError("id", "transaction id is required")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	s := r.store
	if _, exists := s.txIndex[t.ID]; exists {
		return domain.NewValidationError("id", "transaction %q already exists", t.ID)
	}

	idx := s.indexTransaction(t.Clone())
	key := t.GroupKey()
	u.onRollback(func() {
		s.txs = s.txs[:idx]
		delete(s.txIndex, t.ID)
		members := s.groups[key]
		if len(members) <= 1 {
			delete(s.groups, key)
		} else {
			s.groups[key] = members[:len(members)-1]
		}
	})
	return nil
}

// GetByID retrieves a transaction.
func (r *TransactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	idx, ok := r.store.txIndex[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	return r.store.txs[idx].Clone(), nil
}

// ListByGroup lists a group's members in log order. Unknown groups yield an empty slice.
func (r *TransactionRepository) ListByGroup(_ context.Context, groupID string) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.group(groupID), nil
}

// ListByGroupForUpdate lists a group's members inside a unit of work.
func (r *TransactionRepository) ListByGroupForUpdate(_ context.Context, tx usecase.Transaction, groupID string) ([]*domain.Transaction, error) {
	if _, err := unitOf(tx); err != nil {
		return nil, err
	}
	return r.group(groupID), nil
}

func (r *TransactionRepository) group(groupID string) []*domain.Transaction {
	members := r.store.groups[groupID]
	out := make([]*domain.Transaction, 0, len(members))
	for _, idx := range members {
		out = append(out, r.store.txs[idx].Clone())
	}
	return out
}

// SetDeleted flips the soft-delete flag of every listed transaction.
func (r *TransactionRepository) SetDeleted(_ context.Context, tx usecase.Transaction, ids []string, deleted bool) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	for _, id := range ids {
		if _, ok := s.txIndex[id]; !ok {
			return &domain.NotFoundError{Resource: "transaction", ID: id}
		}
	}

	for _, id := range ids {
		t := s.txs[s.txIndex[id]]
		prev := t.Deleted
		t.Deleted = deleted
		u.onRollback(func() { t.Deleted = prev })
	}
	return nil
}

// Query snapshots the matching transactions and returns a sequence over them.
// Ties on timestamp keep log order.
func (r *TransactionRepository) Query(ctx context.Context, filter domain.TransactionFilter) (iter.Seq[*domain.Transaction], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	matched := make([]*domain.Transaction, 0)
	for _, t := range r.store.txs {
		if filter.Match(t) {
			matched = append(matched, t.Clone())
		}
	}
	r.store.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *domain.Transaction) int {
		if filter.Order == domain.OrderDescending {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return func(yield func(*domain.Transaction) bool) {
		for _, t := range matched {
			if !yield(t.Clone()) {
				return
			}
		}
	}, nil
}
