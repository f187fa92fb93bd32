package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// DebtRepository implements usecase.DebtRepository for both directions.
type DebtRepository struct {
	store *Store
}

// NewDebtRepository creates a new DebtRepository.
func NewDebtRepository(store *Store) *DebtRepository {
	return &DebtRepository{store: store}
}

// Create stores a debt or receivable.
func (r *DebtRepository) Create(_ context.Context, tx usecase.Transaction, debt *domain.Debt) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	s := r.store
	if _, exists := s.debts[debt.ID]; exists {
		return domain.NewValidationError("id", "debt %q already exists", debt.ID)
	}

	s.debts[debt.ID] = debt.Clone()
	s.debtOrder = append(s.debtOrder, debt.ID)
	u.onRollback(func() {
		delete(s.debts, debt.ID)
		s.debtOrder = s.debtOrder[:len(s.debtOrder)-1]
	})
	return nil
}

// GetByID retrieves a copy of a debt.
func (r *DebtRepository) GetByID(_ context.Context, id string) (*domain.Debt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	d, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// GetByIDForUpdate retrieves a copy of a debt inside a unit of work.
func (r *DebtRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, id string) (*domain.Debt, error) {
	if _, err := unitOf(tx); err != nil {
		return nil, err
	}

	d, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

func (r *DebtRepository) get(id string) (*domain.Debt, error) {
	d, ok := r.store.debts[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "debt", ID: id}
	}
	return d, nil
}

// List lists debts in creation order. An empty direction lists both.
func (r *DebtRepository) List(_ context.Context, direction domain.DebtDirection) ([]*domain.Debt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Debt, 0, len(r.store.debtOrder))
	for _, id := range r.store.debtOrder {
		d := r.store.debts[id]
		if direction != "" && d.Direction != direction {
			continue
		}
		out = append(out, d.Clone())
	}
	return out, nil
}

// AddInstallment appends an installment to a debt.
func (r *DebtRepository) AddInstallment(_ context.Context, tx usecase.Transaction, debtID string, inst domain.Installment) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	d, err := r.get(debtID)
	if err != nil {
		return err
	}
	if _, err := d.Installment(inst.ID); err == nil {
		return domain.NewValidationError("id", "installment %q already exists", inst.ID)
	}

	d.Installments = append(d.Installments, inst)
	u.onRollback(func() {
		d.Installments = d.Installments[:len(d.Installments)-1]
	})
	return nil
}

// AdjustPaid moves an installment's paid amount by delta, keeping it within [0, amount].
func (r *DebtRepository) AdjustPaid(_ context.Context, tx usecase.Transaction, debtID, installmentID string, delta decimal.Decimal) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	inst, err := r.installment(debtID, installmentID)
	if err != nil {
		return err
	}
	if err := inst.ValidatePaidDelta(delta); err != nil {
		return err
	}

	prev := inst.Paid
	inst.Paid = inst.Paid.Add(delta)
	u.onRollback(func() { inst.Paid = prev })
	return nil
}

// Archive hides an installment from outstanding totals.
func (r *DebtRepository) Archive(_ context.Context, tx usecase.Transaction, debtID, installmentID string) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	inst, err := r.installment(debtID, installmentID)
	if err != nil {
		return err
	}

	prev := inst.Archived
	inst.Archived = true
	u.onRollback(func() { inst.Archived = prev })
	return nil
}

func (r *DebtRepository) installment(debtID, installmentID string) (*domain.Installment, error) {
	d, err := r.get(debtID)
	if err != nil {
		return nil, err
	}
	return d.Installment(installmentID)
}
