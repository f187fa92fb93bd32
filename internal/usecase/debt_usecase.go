package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// DebtUseCase manages debts owed to the business and receivables it owes.
// Payments go through OperationUseCase.PayDebt so they leave a reversible group.
type DebtUseCase struct {
	txManager TransactionManager
	debtRepo  DebtRepository
	idGen     IDGenerator
	clock     Clock
	perms     PermissionChecker
	logger    zerolog.Logger
}

// NewDebtUseCase creates a new DebtUseCase.
func NewDebtUseCase(txManager TransactionManager, debtRepo DebtRepository, idGen IDGenerator, perms PermissionChecker, logger zerolog.Logger) *DebtUseCase {
	return &DebtUseCase{
		txManager: txManager,
		debtRepo:  debtRepo,
		idGen:     idGen,
		clock:     ClockFunc(systemNow),
		perms:     perms,
		logger:    logger,
	}
}

// CreateDebtInput represents input for opening a debt or receivable.
// Amount, when positive, opens the first installment.
type CreateDebtInput struct {
	Party     string
	Currency  string
	Direction domain.DebtDirection
	Amount    decimal.Decimal
	Note      string
}

// CreateDebt opens a debt or receivable.
func (uc *DebtUseCase) CreateDebt(ctx context.Context, input CreateDebtInput) (*domain.Debt, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryDebts, domain.ActionCreate); err != nil {
		return nil, err
	}
	if input.Amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "amount must not be negative")
	}

	now := uc.clock.Now()
	debt := &domain.Debt{
		ID:        uc.idGen.Generate(),
		Party:     strings.TrimSpace(input.Party),
		Currency:  domain.NormalizeCurrency(input.Currency),
		Direction: input.Direction,
		CreatedAt: now,
	}
	if input.Amount.IsPositive() {
		debt.Installments = []domain.Installment{{
			ID:        uc.idGen.Generate(),
			Note:      input.Note,
			Amount:    input.Amount,
			CreatedAt: now,
		}}
	}
	if err := debt.Validate(); err != nil {
		return nil, err
	}

	if err := runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.debtRepo.Create(txCtx, tx, debt)
	}); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("debt_id", debt.ID).
		Str("direction", string(debt.Direction)).
		Str("currency", debt.Currency).
		Msg("debt created")

	return debt, nil
}

// AddInstallment adds a new installment to a debt.
func (uc *DebtUseCase) AddInstallment(ctx context.Context, debtID string, amount decimal.Decimal, note string) (*domain.Debt, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryDebts, domain.ActionCreate); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositiveAmount("amount", amount); err != nil {
		return nil, err
	}

	inst := domain.Installment{
		ID:        uc.idGen.Generate(),
		Note:      note,
		Amount:    amount,
		CreatedAt: uc.clock.Now(),
	}

	if err := runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.debtRepo.AddInstallment(txCtx, tx, debtID, inst)
	}); err != nil {
		return nil, err
	}

	return uc.debtRepo.GetByID(ctx, debtID)
}

// ArchiveInstallment hides an installment from outstanding totals. It stays on the debt.
func (uc *DebtUseCase) ArchiveInstallment(ctx context.Context, debtID, installmentID string) (*domain.Debt, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryDebts, domain.ActionDelete); err != nil {
		return nil, err
	}

	if err := runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.debtRepo.Archive(txCtx, tx, debtID, installmentID)
	}); err != nil {
		return nil, err
	}

	uc.logger.Info().Str("debt_id", debtID).Str("installment_id", installmentID).Msg("installment archived")
	return uc.debtRepo.GetByID(ctx, debtID)
}

// GetDebt retrieves a debt by ID.
func (uc *DebtUseCase) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryDebts, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.debtRepo.GetByID(ctx, id)
}

// ListDebts lists debts of one direction, or all when direction is empty.
func (uc *DebtUseCase) ListDebts(ctx context.Context, direction domain.DebtDirection) ([]*domain.Debt, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryDebts, domain.ActionView); err != nil {
		return nil, err
	}
	switch direction {
	case "", domain.DebtOwedToUs, domain.DebtOwedByUs:
	default:
		return nil, domain.NewValidationError("direction", "unknown debt direction %q", direction)
	}
	return uc.debtRepo.List(ctx, direction)
}
