package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one balance-affecting event on a single asset.
// Positive amounts are inflows. Transactions are never removed; reversing
// their group flips Deleted.
type Transaction struct {
	CreatedAt   time.Time
	Operation   Operation
	ID          string
	Currency    string
	AssetID     string
	Description string
	Party       string
	GroupID     string
	Actor       string
	Amount      decimal.Decimal
	Deleted     bool
}

// Validate checks the fields required to append a transaction.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.AssetID) == "" {
		return NewValidationError("asset_id", "asset reference is required")
	}
	if strings.TrimSpace(t.Currency) == "" {
		return NewValidationError("currency", "currency is required")
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return NewValidationError("amount", "amount is required")
	}
	return nil
}

// GroupKey is the group id, or the transaction id for ungrouped transactions.
func (t *Transaction) GroupKey() string {
	if t.GroupID != "" {
		return t.GroupID
	}
	return t.ID
}

// Kind returns the operation kind, or "" when the transaction carries no payload.
func (t *Transaction) Kind() OperationKind {
	if t.Operation == nil {
		return ""
	}
	return t.Operation.Kind()
}

// Posting returns the balance delta that applies this transaction.
func (t *Transaction) Posting() Posting {
	return Posting{assetID: t.AssetID, transactionID: t.ID, amount: t.Amount}
}

// Reversal returns the balance delta that undoes this transaction.
func (t *Transaction) Reversal() Posting {
	return Posting{assetID: t.AssetID, transactionID: t.ID, amount: t.Amount.Neg()}
}

// Clone returns a copy safe to hand out of a repository.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// Posting is a balance delta. It can only be derived from a Transaction,
// so balances cannot move without a logged transaction behind them.
type Posting struct {
	assetID       string
	transactionID string
	amount        decimal.Decimal
}

func (p Posting) AssetID() string         { return p.assetID }
func (p Posting) TransactionID() string   { return p.transactionID }
func (p Posting) Amount() decimal.Decimal { return p.amount }

type transactionJSON struct {
	CreatedAt   time.Time       `json:"created_at"`
	Operation   json.RawMessage `json:"operation,omitempty"`
	ID          string          `json:"id"`
	Currency    string          `json:"currency"`
	AssetID     string          `json:"asset_id"`
	Description string          `json:"description,omitempty"`
	Party       string          `json:"party,omitempty"`
	GroupID     string          `json:"group_id,omitempty"`
	Actor       string          `json:"actor,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Deleted     bool            `json:"deleted"`
}

// MarshalJSON encodes the transaction with its tagged operation payload.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var op json.RawMessage
	if t.Operation != nil {
		raw, err := MarshalOperation(t.Operation)
		if err != nil {
			return nil, err
		}
		op = raw
	}

	return json.Marshal(transactionJSON{
		CreatedAt:   t.CreatedAt,
		Operation:   op,
		ID:          t.ID,
		Currency:    t.Currency,
		AssetID:     t.AssetID,
		Description: t.Description,
		Party:       t.Party,
		GroupID:     t.GroupID,
		Actor:       t.Actor,
		Amount:      t.Amount,
		Deleted:     t.Deleted,
	})
}

// UnmarshalJSON decodes a transaction written by MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	op, err := UnmarshalOperation(raw.Operation)
	if err != nil {
		return err
	}

	*t = Transaction{
		CreatedAt:   raw.CreatedAt,
		Operation:   op,
		ID:          raw.ID,
		Currency:    raw.Currency,
		AssetID:     raw.AssetID,
		Description: raw.Description,
		Party:       raw.Party,
		GroupID:     raw.GroupID,
		Actor:       raw.Actor,
		Amount:      raw.Amount,
		Deleted:     raw.Deleted,
	}
	return nil
}

// SortOrder controls transaction query ordering.
type SortOrder int

const (
	// OrderAscending is oldest first, used for computation.
	OrderAscending SortOrder = iota
	// OrderDescending is newest first, used for display.
	OrderDescending
)

// DateRange is an inclusive time window. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the window, bounds included.
func (r DateRange) Contains(ts time.Time) bool {
	if !r.From.IsZero() && ts.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && ts.After(r.To) {
		return false
	}
	return true
}

// Validate rejects inverted windows.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return NewValidationError("range", "end %s is before start %s", r.To.Format(time.RFC3339), r.From.Format(time.RFC3339))
	}
	return nil
}

// TransactionFilter selects transactions from the log. Empty fields match everything.
type TransactionFilter struct {
	Range    DateRange
	Deleted  *bool
	Currency string
	Kind     OperationKind
	GroupID  string
	AssetID  string
	Order    SortOrder
}

// ActiveOnly returns a filter pointer value selecting non-deleted transactions.
func ActiveOnly() *bool {
	v := false
	return &v
}

// DeletedOnly returns a filter pointer value selecting soft-deleted transactions.
func DeletedOnly() *bool {
	v := true
	return &v
}

// Match reports whether t satisfies the filter.
func (f TransactionFilter) Match(t *Transaction) bool {
	if !f.Range.Contains(t.CreatedAt) {
		return false
	}
	if f.Deleted != nil && t.Deleted != *f.Deleted {
		return false
	}
	if f.Currency != "" && !strings.EqualFold(f.Currency, t.Currency) {
		return false
	}
	if f.Kind != "" && t.Kind() != f.Kind {
		return false
	}
	if f.GroupID != "" && t.GroupID != f.GroupID {
		return false
	}
	if f.AssetID != "" && t.AssetID != f.AssetID {
		return false
	}
	return true
}
