package memory

import (
	"context"
	"slices"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// AssetRepository implements usecase.AssetRepository.
type AssetRepository struct {
	store *Store
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(store *Store) *AssetRepository {
	return &AssetRepository{store: store}
}

// CreateBank registers a bank.
func (r *AssetRepository) CreateBank(_ context.Context, tx usecase.Transaction, bank *domain.Bank) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	if _, exists := s.banks[bank.ID]; exists {
		return domain.NewValidationError("id", "bank %q already exists", bank.ID)
	}

	c := *bank
	s.banks[c.ID] = &c
	s.bankOrder = append(s.bankOrder, c.ID)
	u.onRollback(func() {
		delete(s.banks, c.ID)
		s.bankOrder = s.bankOrder[:len(s.bankOrder)-1]
	})
	return nil
}

// GetBank retrieves a bank by ID.
func (r *AssetRepository) GetBank(_ context.Context, id string) (*domain.Bank, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	bank, ok := r.store.banks[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "bank", ID: id}
	}
	c := *bank
	return &c, nil
}

// ListBanks lists banks in creation order.
func (r *AssetRepository) ListBanks(_ context.Context) ([]*domain.Bank, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Bank, 0, len(r.store.bankOrder))
	for _, id := range r.store.bankOrder {
		c := *r.store.banks[id]
		out = append(out, &c)
	}
	return out, nil
}

// Create registers an asset. Bank accounts must reference a known bank.
func (r *AssetRepository) Create(_ context.Context, tx usecase.Transaction, asset *domain.Asset) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	if _, exists := s.assets[asset.ID]; exists {
		return domain.NewValidationError("id", "asset %q already exists", asset.ID)
	}
	if asset.Kind == domain.AssetKindBank {
		if _, ok := s.banks[asset.BankID]; !ok {
			return &domain.NotFoundError{Resource: "bank", ID: asset.BankID}
		}
	}

	c := *asset
	s.assets[c.ID] = &c
	s.assetOrder = append(s.assetOrder, c.ID)
	u.onRollback(func() {
		delete(s.assets, c.ID)
		s.assetOrder = s.assetOrder[:len(s.assetOrder)-1]
	})
	return nil
}

// GetByID retrieves a read-only copy of an asset.
func (r *AssetRepository) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get(id)
}

// GetByIDsForUpdate retrieves assets inside a unit of work.
func (r *AssetRepository) GetByIDsForUpdate(_ context.Context, tx usecase.Transaction, ids []string) ([]*domain.Asset, error) {
	if _, err := unitOf(tx); err != nil {
		return nil, err
	}

	out := make([]*domain.Asset, 0, len(ids))
	for _, id := range ids {
		a, err := r.get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *AssetRepository) get(id string) (*domain.Asset, error) {
	asset, ok := r.store.assets[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "asset", ID: id}
	}
	c := *asset
	return &c, nil
}

// List lists assets in creation order.
func (r *AssetRepository) List(_ context.Context) ([]*domain.Asset, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Asset, 0, len(r.store.assetOrder))
	for _, id := range r.store.assetOrder {
		c := *r.store.assets[id]
		out = append(out, &c)
	}
	return out, nil
}

// ApplyPostings adds every posting to its asset balance. Nothing is applied
// when any referenced asset is missing.
func (r *AssetRepository) ApplyPostings(_ context.Context, tx usecase.Transaction, postings []domain.Posting) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	for _, p := range postings {
		if _, ok := s.assets[p.AssetID()]; !ok {
			return &domain.NotFoundError{Resource: "asset", ID: p.AssetID()}
		}
	}

	for _, p := range postings {
		asset := s.assets[p.AssetID()]
		prev := asset.Balance
		asset.Balance = asset.Apply(p)
		u.onRollback(func() { asset.Balance = prev })
	}
	return nil
}

// Remove deletes an asset. Transactions referencing it stay in the log.
func (r *AssetRepository) Remove(_ context.Context, tx usecase.Transaction, id string) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	asset, ok := s.assets[id]
	if !ok {
		return &domain.NotFoundError{Resource: "asset", ID: id}
	}

	idx := slices.Index(s.assetOrder, id)
	delete(s.assets, id)
	s.assetOrder = slices.Delete(s.assetOrder, idx, idx+1)
	u.onRollback(func() {
		s.assets[id] = asset
		s.assetOrder = slices.Insert(s.assetOrder, idx, id)
	})
	return nil
}
