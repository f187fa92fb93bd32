package memory

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// SettingsRepository implements usecase.SettingsRepository.
type SettingsRepository struct {
	store *Store
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(store *Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns a stored blob.
func (r *SettingsRepository) Get(_ context.Context, key string) (json.RawMessage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	v, ok := r.store.settings[key]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "setting", ID: key}
	}
	return slices.Clone(v), nil
}

// Put replaces a stored blob. The value must be valid JSON.
func (r *SettingsRepository) Put(_ context.Context, tx usecase.Transaction, key string, value json.RawMessage) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}
	if !json.Valid(value) {
		return domain.NewValidationError("value", "setting %q is not valid JSON", key)
	}

	s := r.store
	prev, existed := s.settings[key]
	s.settings[key] = slices.Clone(value)
	u.onRollback(func() {
		if existed {
			s.settings[key] = prev
		} else {
			delete(s.settings, key)
		}
	})
	return nil
}
