package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// CreateBankRequest represents a request to register a bank.
type CreateBankRequest struct {
	Name string `json:"name"`
}

// CreateAssetRequest represents a request to create an asset.
type CreateAssetRequest struct {
	Name           string           `json:"name"`
	Currency       string           `json:"currency"`
	Kind           domain.AssetKind `json:"kind,omitempty"`
	BankID         string           `json:"bank_id,omitempty"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAssetRequest) ToUseCaseInput() usecase.CreateAssetInput {
	return usecase.CreateAssetInput{
		Name:           r.Name,
		Currency:       r.Currency,
		Kind:           r.Kind,
		BankID:         r.BankID,
		OpeningBalance: r.OpeningBalance,
	}
}

// MetaRequest holds the descriptive fields every operation accepts.
// The actor is taken from the authenticated caller, never from the body.
type MetaRequest struct {
	At          *time.Time `json:"at,omitempty"`
	GroupID     string     `json:"group_id,omitempty"`
	Description string     `json:"description,omitempty"`
	Party       string     `json:"party,omitempty"`
}

func (m MetaRequest) toMeta() usecase.Meta {
	return usecase.Meta{
		At:          m.At,
		GroupID:     m.GroupID,
		Description: m.Description,
		Party:       m.Party,
	}
}

// TradeRequest represents a buy or sell of foreign currency.
type TradeRequest struct {
	MetaRequest
	ForeignAssetID string              `json:"foreign_asset_id"`
	LocalAssetID   string              `json:"local_asset_id"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Rate           decimal.Decimal     `json:"rate"`
	LocalAmount    decimal.NullDecimal `json:"local_amount"`
	CostRate       decimal.NullDecimal `json:"cost_rate"`
}

// ToUseCaseInput converts to use case input.
func (r *TradeRequest) ToUseCaseInput() usecase.TradeInput {
	return usecase.TradeInput{
		Meta:           r.toMeta(),
		ForeignAssetID: r.ForeignAssetID,
		LocalAssetID:   r.LocalAssetID,
		Quantity:       r.Quantity,
		Rate:           r.Rate,
		LocalAmount:    r.LocalAmount,
		CostRate:       r.CostRate,
	}
}

// TransferRequest represents a move of funds between two assets.
type TransferRequest struct {
	MetaRequest
	FromAssetID string          `json:"from_asset_id"`
	ToAssetID   string          `json:"to_asset_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		Meta:        r.toMeta(),
		FromAssetID: r.FromAssetID,
		ToAssetID:   r.ToAssetID,
		Amount:      r.Amount,
	}
}

// SingleAssetRequest represents an operation against one asset. Rate converts
// the amount to the reference currency and is required for foreign assets.
type SingleAssetRequest struct {
	MetaRequest
	AssetID string              `json:"asset_id"`
	Amount  decimal.Decimal     `json:"amount"`
	Rate    decimal.NullDecimal `json:"rate"`
}

// ToUseCaseInput converts to use case input.
func (r *SingleAssetRequest) ToUseCaseInput() usecase.SingleAssetInput {
	return usecase.SingleAssetInput{
		Meta:    r.toMeta(),
		AssetID: r.AssetID,
		Amount:  r.Amount,
		Rate:    r.Rate,
	}
}

// ExpenseRequest represents an expense paid from an asset.
type ExpenseRequest struct {
	SingleAssetRequest
	Category string `json:"category"`
}

// ToUseCaseInput converts to use case input.
func (r *ExpenseRequest) ToUseCaseInput() usecase.ExpenseInput {
	return usecase.ExpenseInput{
		SingleAssetInput: r.SingleAssetRequest.ToUseCaseInput(),
		Category:         r.Category,
	}
}

// SaleRequest represents a sale received into an asset.
type SaleRequest struct {
	SingleAssetRequest
	Cost decimal.Decimal `json:"cost"`
}

// ToUseCaseInput converts to use case input.
func (r *SaleRequest) ToUseCaseInput() usecase.SaleInput {
	return usecase.SaleInput{
		SingleAssetInput: r.SingleAssetRequest.ToUseCaseInput(),
		Cost:             r.Cost,
	}
}

// AdjustmentRequest represents a manual gain or loss on an asset.
type AdjustmentRequest struct {
	SingleAssetRequest
	Reason string `json:"reason"`
	Loss   bool   `json:"loss"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustmentRequest) ToUseCaseInput() usecase.AdjustmentInput {
	return usecase.AdjustmentInput{
		SingleAssetInput: r.SingleAssetRequest.ToUseCaseInput(),
		Reason:           r.Reason,
		Loss:             r.Loss,
	}
}

// DepositRequest represents owner funds paid into an asset.
type DepositRequest struct {
	MetaRequest
	AssetID string          `json:"asset_id"`
	Source  string          `json:"source,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput() usecase.DepositInput {
	return usecase.DepositInput{
		Meta:    r.toMeta(),
		AssetID: r.AssetID,
		Source:  r.Source,
		Amount:  r.Amount,
	}
}

// WithdrawRequest represents funds taken out of an asset.
type WithdrawRequest struct {
	MetaRequest
	AssetID  string          `json:"asset_id"`
	Purpose  string          `json:"purpose,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	InFlight bool            `json:"in_flight"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawRequest) ToUseCaseInput() usecase.WithdrawInput {
	return usecase.WithdrawInput{
		Meta:     r.toMeta(),
		AssetID:  r.AssetID,
		Purpose:  r.Purpose,
		Amount:   r.Amount,
		InFlight: r.InFlight,
	}
}

// PayDebtRequest represents a payment settling part of a debt.
type PayDebtRequest struct {
	MetaRequest
	DebtID        string          `json:"debt_id"`
	InstallmentID string          `json:"installment_id,omitempty"`
	AssetID       string          `json:"asset_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *PayDebtRequest) ToUseCaseInput() usecase.PayDebtInput {
	return usecase.PayDebtInput{
		Meta:          r.toMeta(),
		DebtID:        r.DebtID,
		InstallmentID: r.InstallmentID,
		AssetID:       r.AssetID,
		Amount:        r.Amount,
	}
}

// CreateDebtRequest represents a request to open a debt.
type CreateDebtRequest struct {
	Party     string               `json:"party"`
	Currency  string               `json:"currency"`
	Direction domain.DebtDirection `json:"direction"`
	Amount    decimal.Decimal      `json:"amount"`
	Note      string               `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDebtRequest) ToUseCaseInput() usecase.CreateDebtInput {
	return usecase.CreateDebtInput{
		Party:     r.Party,
		Currency:  r.Currency,
		Direction: r.Direction,
		Amount:    r.Amount,
		Note:      r.Note,
	}
}

// AddInstallmentRequest represents a new installment on a debt.
type AddInstallmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// CloseCapitalRequest carries the rates used to close capital. A currency maps
// either to a single rate or to allocation parts.
type CloseCapitalRequest struct {
	Rates map[string]domain.RateInput `json:"rates"`
	Note  string                      `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CloseCapitalRequest) ToUseCaseInput() usecase.CloseCapitalInput {
	return usecase.CloseCapitalInput{Rates: r.Rates, Note: r.Note}
}
