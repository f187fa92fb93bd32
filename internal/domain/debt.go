package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtDirection tells who owes whom.
type DebtDirection string

const (
	// DebtOwedToUs is money a customer owes the business (a debt).
	DebtOwedToUs DebtDirection = "owed_to_us"
	// DebtOwedByUs is money the business owes a counterparty (a receivable).
	DebtOwedByUs DebtDirection = "owed_by_us"
)

// Debt is an obligation with a counterparty in one currency.
type Debt struct {
	CreatedAt    time.Time     `json:"created_at"`
	ID           string        `json:"id"`
	Party        string        `json:"party"`
	Currency     string        `json:"currency"`
	Direction    DebtDirection `json:"direction"`
	Installments []Installment `json:"installments"`
}

// Installment is one sub-entry of a debt. Paid never exceeds Amount.
type Installment struct {
	CreatedAt time.Time       `json:"created_at"`
	ID        string          `json:"id"`
	Note      string          `json:"note,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      decimal.Decimal `json:"paid"`
	Archived  bool            `json:"archived"`
}

// Outstanding is the unpaid part of the installment.
func (i Installment) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.Paid)
}

// ValidatePaidDelta checks that moving Paid by delta keeps 0 <= Paid <= Amount.
func (i Installment) ValidatePaidDelta(delta decimal.Decimal) error {
	paid := i.Paid.Add(delta)
	if paid.IsNegative() {
		return NewValidationError("paid", "installment %s paid would become negative (%s)", i.ID, paid)
	}
	if paid.GreaterThan(i.Amount) {
		return NewValidationError("paid", "installment %s paid %s would exceed amount %s", i.ID, paid, i.Amount)
	}
	return nil
}

// Validate checks the static fields of a debt and its installments.
func (d *Debt) Validate() error {
	if err := ValidateName("party", d.Party); err != nil {
		return err
	}
	if err := ValidateCurrency(d.Currency); err != nil {
		return err
	}
	if d.Direction != DebtOwedToUs && d.Direction != DebtOwedByUs {
		return NewValidationError("direction", "unknown debt direction %q", d.Direction)
	}
	for _, inst := range d.Installments {
		if !inst.Amount.IsPositive() {
			return NewValidationError("amount", "installment %s amount must be positive", inst.ID)
		}
		if inst.Paid.IsNegative() || inst.Paid.GreaterThan(inst.Amount) {
			return NewValidationError("paid", "installment %s paid must be within [0, %s]", inst.ID, inst.Amount)
		}
	}
	return nil
}

// Outstanding sums unpaid amounts of non-archived installments.
func (d *Debt) Outstanding() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range d.Installments {
		if inst.Archived {
			continue
		}
		total = total.Add(inst.Outstanding())
	}
	return total
}

// Installment finds an installment by id.
func (d *Debt) Installment(id string) (*Installment, error) {
	for i := range d.Installments {
		if d.Installments[i].ID == id {
			return &d.Installments[i], nil
		}
	}
	return nil, &NotFoundError{Resource: "installment", ID: id}
}

// Clone deep-copies the installment slice.
func (d *Debt) Clone() *Debt {
	c := *d
	c.Installments = append([]Installment(nil), d.Installments...)
	return &c
}
