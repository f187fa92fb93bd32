package memory

import (
	"context"
	"slices"
	"time"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// CapitalHistoryRepository implements usecase.CapitalHistoryRepository.
// Entries are kept ordered by timestamp.
type CapitalHistoryRepository struct {
	store *Store
}

// NewCapitalHistoryRepository creates a new CapitalHistoryRepository.
func NewCapitalHistoryRepository(store *Store) *CapitalHistoryRepository {
	return &CapitalHistoryRepository{store: store}
}

// Append stores a closing.
func (r *CapitalHistoryRepository) Append(_ context.Context, tx usecase.Transaction, entry *domain.CapitalHistoryEntry) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	idx := s.insertHistory(entry.Clone())
	u.onRollback(func() {
		s.history = slices.Delete(s.history, idx, idx+1)
	})
	return nil
}

// Query lists closings inside the window, oldest first.
func (r *CapitalHistoryRepository) Query(ctx context.Context, window domain.DateRange) ([]*domain.CapitalHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.CapitalHistoryEntry, 0)
	for _, h := range r.store.history {
		if window.Contains(h.Timestamp) {
			out = append(out, h.Clone())
		}
	}
	return out, nil
}

// LatestAtOrBefore returns the newest closing with timestamp <= ts.
func (r *CapitalHistoryRepository) LatestAtOrBefore(_ context.Context, ts time.Time) (*domain.CapitalHistoryEntry, error) {
	return r.latest(func(h *domain.CapitalHistoryEntry) bool { return !h.Timestamp.After(ts) }), nil
}

// LatestBefore returns the newest closing with timestamp < ts.
func (r *CapitalHistoryRepository) LatestBefore(_ context.Context, ts time.Time) (*domain.CapitalHistoryEntry, error) {
	return r.latest(func(h *domain.CapitalHistoryEntry) bool { return h.Timestamp.Before(ts) }), nil
}

func (r *CapitalHistoryRepository) latest(match func(*domain.CapitalHistoryEntry) bool) *domain.CapitalHistoryEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := len(r.store.history) - 1; i >= 0; i-- {
		if h := r.store.history[i]; match(h) {
			return h.Clone()
		}
	}
	return nil
}
