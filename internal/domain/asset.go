package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetKind distinguishes cash vaults from bank accounts.
type AssetKind string

const (
	AssetKindCash AssetKind = "cash"
	AssetKindBank AssetKind = "bank"
)

// Asset is a tracked store of value with one currency and one balance.
// Balance is owned by the asset repository and only moves through postings.
type Asset struct {
	CreatedAt      time.Time       `json:"created_at"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	BankID         string          `json:"bank_id,omitempty"`
	Kind           AssetKind       `json:"kind"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
}

// Validate checks the static fields of an asset.
func (a *Asset) Validate() error {
	if err := ValidateName("name", a.Name); err != nil {
		return err
	}
	if err := ValidateCurrency(a.Currency); err != nil {
		return err
	}
	switch a.Kind {
	case AssetKindCash:
	case AssetKindBank:
		if strings.TrimSpace(a.BankID) == "" {
			return NewValidationError("bank_id", "bank account requires a bank")
		}
	default:
		return NewValidationError("kind", "unknown asset kind %q", a.Kind)
	}
	return nil
}

// Channel reports which cost-basis channel trades against this asset use.
func (a *Asset) Channel() Channel {
	if a.Kind == AssetKindBank {
		return ChannelBank
	}
	return ChannelCash
}

// Apply returns the balance after a posting.
func (a *Asset) Apply(p Posting) decimal.Decimal {
	return a.Balance.Add(p.Amount())
}

// Bank groups bank-account assets.
type Bank struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
}

// Validate checks the bank name.
func (b *Bank) Validate() error {
	return ValidateName("name", b.Name)
}
