package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// OperationUseCase turns business operations into posted transaction groups.
type OperationUseCase struct {
	ledger    *LedgerUseCase
	assetRepo AssetRepository
	debtRepo  DebtRepository
	reference string
}

// NewOperationUseCase creates a new OperationUseCase. Reference is the local
// currency trades settle in and profit is measured in.
func NewOperationUseCase(ledger *LedgerUseCase, assetRepo AssetRepository, debtRepo DebtRepository, reference string) *OperationUseCase {
	if reference == "" {
		reference = domain.DefaultReferenceCurrency
	}
	return &OperationUseCase{
		ledger:    ledger,
		assetRepo: assetRepo,
		debtRepo:  debtRepo,
		reference: domain.NormalizeCurrency(reference),
	}
}

// Meta carries the descriptive fields shared by every operation.
type Meta struct {
	At          *time.Time
	GroupID     string
	Description string
	Party       string
	Actor       string
}

// TradeInput represents input for buying or selling foreign currency.
// LocalAmount defaults to Quantity * Rate.
type TradeInput struct {
	Meta
	ForeignAssetID string
	LocalAssetID   string
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	LocalAmount    decimal.NullDecimal
	// CostRate overrides the weighted cost basis of a sell.
	CostRate decimal.NullDecimal
}

// BuyCurrency records foreign currency bought with local currency.
func (uc *OperationUseCase) BuyCurrency(ctx context.Context, input TradeInput) ([]*domain.Transaction, error) {
	foreign, local, localAmount, err := uc.trade(ctx, input)
	if err != nil {
		return nil, err
	}

	op := domain.BuyOperation{
		Currency:       foreign.Currency,
		Channel:        foreign.Channel(),
		CounterAssetID: local.ID,
		Quantity:       input.Quantity,
		LocalAmount:    localAmount,
		Rate:           input.Rate,
	}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, "Buy "+foreign.Currency),
		PostingLeg{AssetID: foreign.ID, Amount: input.Quantity},
		PostingLeg{AssetID: local.ID, Amount: localAmount.Neg()},
	)
}

// SellCurrency records foreign currency sold for local currency.
func (uc *OperationUseCase) SellCurrency(ctx context.Context, input TradeInput) ([]*domain.Transaction, error) {
	foreign, local, localAmount, err := uc.trade(ctx, input)
	if err != nil {
		return nil, err
	}
	if input.CostRate.Valid && !input.CostRate.Decimal.IsPositive() {
		return nil, domain.NewValidationError("cost_rate", "cost rate must be positive")
	}

	op := domain.SellOperation{
		Currency:       foreign.Currency,
		Channel:        foreign.Channel(),
		CounterAssetID: local.ID,
		Quantity:       input.Quantity,
		LocalAmount:    localAmount,
		Rate:           input.Rate,
		CostRate:       input.CostRate,
	}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, "Sell "+foreign.Currency),
		PostingLeg{AssetID: foreign.ID, Amount: input.Quantity.Neg()},
		PostingLeg{AssetID: local.ID, Amount: localAmount},
	)
}

func (uc *OperationUseCase) trade(ctx context.Context, input TradeInput) (foreign, local *domain.Asset, localAmount decimal.Decimal, err error) {
	if err = domain.ValidatePositiveAmount("quantity", input.Quantity); err != nil {
		return
	}
	if err = domain.ValidatePositiveAmount("rate", input.Rate); err != nil {
		return
	}

	localAmount = input.Quantity.Mul(input.Rate)
	if input.LocalAmount.Valid {
		localAmount = input.LocalAmount.Decimal
		if err = domain.ValidatePositiveAmount("local_amount", localAmount); err != nil {
			return
		}
	}

	if foreign, err = uc.assetRepo.GetByID(ctx, input.ForeignAssetID); err != nil {
		return
	}
	if local, err = uc.assetRepo.GetByID(ctx, input.LocalAssetID); err != nil {
		return
	}
	if foreign.Currency == uc.reference {
		err = domain.NewValidationError("foreign_asset_id", "asset %s holds the reference currency %s", foreign.ID, uc.reference)
		return
	}
	if local.Currency != uc.reference {
		err = domain.NewValidationError("local_asset_id", "asset %s must hold %s, not %s", local.ID, uc.reference, local.Currency)
		return
	}
	return
}

// TransferInput represents input for moving money between two assets.
type TransferInput struct {
	Meta
	FromAssetID string
	ToAssetID   string
	Amount      decimal.Decimal
}

// TransferFunds moves money between two assets of the same currency.
func (uc *OperationUseCase) TransferFunds(ctx context.Context, input TransferInput) ([]*domain.Transaction, error) {
	if err := domain.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}
	if input.FromAssetID == input.ToAssetID {
		return nil, domain.NewValidationError("to_asset_id", "cannot transfer to the same asset")
	}

	from, err := uc.assetRepo.GetByID(ctx, input.FromAssetID)
	if err != nil {
		return nil, err
	}
	to, err := uc.assetRepo.GetByID(ctx, input.ToAssetID)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, domain.NewValidationError("to_asset_id", "currency mismatch: %s vs %s", from.Currency, to.Currency)
	}

	op := domain.TransferOperation{FromAssetID: from.ID, ToAssetID: to.ID, Amount: input.Amount}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, "Transfer "+from.Name+" to "+to.Name),
		PostingLeg{AssetID: from.ID, Amount: input.Amount.Neg()},
		PostingLeg{AssetID: to.ID, Amount: input.Amount},
	)
}

// SingleAssetInput represents an operation touching one asset. Rate converts
// Amount into the reference currency and is required for foreign assets.
type SingleAssetInput struct {
	Meta
	AssetID string
	Amount  decimal.Decimal
	Rate    decimal.NullDecimal
}

// ExpenseInput represents input for recording an operating cost.
type ExpenseInput struct {
	SingleAssetInput
	Category string
}

// RecordExpense pays an operating cost out of an asset.
func (uc *OperationUseCase) RecordExpense(ctx context.Context, input ExpenseInput) ([]*domain.Transaction, error) {
	asset, value, err := uc.single(ctx, input.SingleAssetInput)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(input.Category)
	description := "Expense"
	if category != "" {
		description += ": " + category
	}

	op := domain.ExpenseOperation{Category: category, Amount: value}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, description),
		PostingLeg{AssetID: asset.ID, Amount: input.Amount.Neg()},
	)
}

// RecordExchangeFee books fee income into an asset.
func (uc *OperationUseCase) RecordExchangeFee(ctx context.Context, input SingleAssetInput) ([]*domain.Transaction, error) {
	asset, value, err := uc.single(ctx, input)
	if err != nil {
		return nil, err
	}

	op := domain.ExchangeFeeOperation{Amount: value}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, "Exchange fee"),
		PostingLeg{AssetID: asset.ID, Amount: input.Amount},
	)
}

// SaleInput represents a point-of-sale ticket. Amount is the revenue received.
type SaleInput struct {
	SingleAssetInput
	Cost decimal.Decimal
}

// RecordSale books point-of-sale revenue into an asset.
func (uc *OperationUseCase) RecordSale(ctx context.Context, input SaleInput) ([]*domain.Transaction, error) {
	if input.Cost.IsNegative() {
		return nil, domain.NewValidationError("cost", "cost must not be negative")
	}
	asset, revenue, err := uc.single(ctx, input.SingleAssetInput)
	if err != nil {
		return nil, err
	}

	cost := input.Cost
	if asset.Currency != uc.reference {
		cost = cost.Mul(input.Rate.Decimal)
	}

	op := domain.SaleOperation{Revenue: revenue, Cost: cost}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, "Point of sale"),
		PostingLeg{AssetID: asset.ID, Amount: input.Amount},
	)
}

// AdjustmentInput represents a manual profit or loss.
type AdjustmentInput struct {
	SingleAssetInput
	Reason string
	Loss   bool
}

// RecordAdjustment books a manual profit into, or loss out of, an asset.
func (uc *OperationUseCase) RecordAdjustment(ctx context.Context, input AdjustmentInput) ([]*domain.Transaction, error) {
	asset, value, err := uc.single(ctx, input.SingleAssetInput)
	if err != nil {
		return nil, err
	}

	amount := input.Amount
	if input.Loss {
		amount = amount.Neg()
	}

	op := domain.AdjustmentOperation{Reason: input.Reason, Amount: value, Loss: input.Loss}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, fallback(input.Reason, "Adjustment")),
		PostingLeg{AssetID: asset.ID, Amount: amount},
	)
}

// single validates a one-asset operation and returns its reference-currency value.
func (uc *OperationUseCase) single(ctx context.Context, input SingleAssetInput) (*domain.Asset, decimal.Decimal, error) {
	if err := domain.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, decimal.Zero, err
	}

	asset, err := uc.assetRepo.GetByID(ctx, input.AssetID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if asset.Currency == uc.reference {
		return asset, input.Amount, nil
	}

	if !input.Rate.Valid || !input.Rate.Decimal.IsPositive() {
		return nil, decimal.Zero, &domain.MissingRateError{Currency: asset.Currency, Total: input.Amount}
	}
	return asset, input.Amount.Mul(input.Rate.Decimal), nil
}

// DepositInput represents capital brought in from outside the business.
type DepositInput struct {
	Meta
	AssetID string
	Source  string
	Amount  decimal.Decimal
}

// Deposit adds outside capital to an asset.
func (uc *OperationUseCase) Deposit(ctx context.Context, input DepositInput) ([]*domain.Transaction, error) {
	if err := domain.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}

	op := domain.DepositOperation{Source: input.Source}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, fallback(input.Source, "Deposit")),
		PostingLeg{AssetID: input.AssetID, Amount: input.Amount},
	)
}

// WithdrawInput represents money taken out of an asset.
type WithdrawInput struct {
	Meta
	AssetID  string
	Purpose  string
	Amount   decimal.Decimal
	InFlight bool
}

// Withdraw takes money out of an asset. In-flight withdrawals keep counting
// as capital until their group is deleted.
func (uc *OperationUseCase) Withdraw(ctx context.Context, input WithdrawInput) ([]*domain.Transaction, error) {
	if err := domain.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}

	op := domain.WithdrawalOperation{Purpose: input.Purpose, InFlight: input.InFlight}
	return uc.post(ctx, input.Meta, op, fallback(input.Description, fallback(input.Purpose, "Withdrawal")),
		PostingLeg{AssetID: input.AssetID, Amount: input.Amount.Neg()},
	)
}

// PayDebtInput represents a payment against one installment.
type PayDebtInput struct {
	Meta
	DebtID        string
	InstallmentID string
	AssetID       string
	Amount        decimal.Decimal
}

// PayDebt settles part of an installment. Money flows into the asset for
// debts owed to the business and out of it for receivables.
func (uc *OperationUseCase) PayDebt(ctx context.Context, input PayDebtInput) ([]*domain.Transaction, error) {
	if err := domain.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}

	debt, err := uc.debtRepo.GetByID(ctx, input.DebtID)
	if err != nil {
		return nil, err
	}
	inst, err := debt.Installment(input.InstallmentID)
	if err != nil {
		return nil, err
	}
	if inst.Archived {
		return nil, domain.NewValidationError("installment_id", "installment %s is archived", inst.ID)
	}
	if err := inst.ValidatePaidDelta(input.Amount); err != nil {
		return nil, err
	}

	asset, err := uc.assetRepo.GetByID(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Currency != debt.Currency {
		return nil, domain.NewValidationError("asset_id", "currency mismatch: debt in %s, asset in %s", debt.Currency, asset.Currency)
	}

	amount := input.Amount
	if debt.Direction == domain.DebtOwedByUs {
		amount = amount.Neg()
	}

	meta := input.Meta
	if meta.Party == "" {
		meta.Party = debt.Party
	}

	op := domain.DebtPaymentOperation{DebtID: debt.ID, InstallmentID: inst.ID, Amount: input.Amount}
	return uc.post(ctx, meta, op, fallback(input.Description, "Payment: "+debt.Party),
		PostingLeg{AssetID: asset.ID, Amount: amount},
	)
}

func (uc *OperationUseCase) post(ctx context.Context, meta Meta, op domain.Operation, description string, legs ...PostingLeg) ([]*domain.Transaction, error) {
	return uc.ledger.Post(ctx, PostInput{
		At:          meta.At,
		Operation:   op,
		GroupID:     meta.GroupID,
		Description: description,
		Party:       meta.Party,
		Actor:       meta.Actor,
		Legs:        legs,
	})
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
