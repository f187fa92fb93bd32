package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// BundleVersion is the current export format version.
const BundleVersion = 1

// Bundle is the full engine state as exported and imported.
type Bundle struct {
	ExportedAt     time.Time                  `json:"exported_at"`
	Settings       map[string]json.RawMessage `json:"settings,omitempty"`
	Banks          []*Bank                    `json:"banks"`
	Assets         []*Asset                   `json:"assets"`
	Transactions   []*Transaction             `json:"transactions"`
	Debts          []*Debt                    `json:"debts"`
	Receivables    []*Debt                    `json:"receivables"`
	CapitalHistory []*CapitalHistoryEntry     `json:"capital_history"`
	Version        int                        `json:"version"`
}

// Normalize rewrites currency codes on every record to their canonical
// upper-case form, so imported balances match rates and reference totals.
func (b *Bundle) Normalize() {
	for _, a := range b.Assets {
		a.Currency = NormalizeCurrency(a.Currency)
	}
	for _, t := range b.Transactions {
		t.Currency = NormalizeCurrency(t.Currency)
	}
	for _, d := range b.Debts {
		d.Currency = NormalizeCurrency(d.Currency)
	}
	for _, r := range b.Receivables {
		r.Currency = NormalizeCurrency(r.Currency)
	}
	for _, h := range b.CapitalHistory {
		h.ReferenceCurrency = NormalizeCurrency(h.ReferenceCurrency)
	}
}

// Validate checks every record and rejects duplicate ids.
func (b *Bundle) Validate() error {
	if b.Version > BundleVersion {
		return NewValidationError("version", "unsupported bundle version %d", b.Version)
	}

	seen := make(map[string]bool)
	unique := func(kind, id string) error {
		if id == "" {
			return NewValidationError(kind, "record without id")
		}
		key := kind + "/" + id
		if seen[key] {
			return NewValidationError(kind, "duplicate id %q", id)
		}
		seen[key] = true
		return nil
	}

	for _, bank := range b.Banks {
		if err := unique("bank", bank.ID); err != nil {
			return err
		}
		if err := bank.Validate(); err != nil {
			return fmt.Errorf("bank %s: %w", bank.ID, err)
		}
	}
	for _, a := range b.Assets {
		if err := unique("asset", a.ID); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
	}
	for _, t := range b.Transactions {
		if err := unique("transaction", t.ID); err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	for _, d := range b.Debts {
		if err := unique("debt", d.ID); err != nil {
			return err
		}
		if d.Direction != DebtOwedToUs {
			return NewValidationError("debts", "debt %s has direction %q", d.ID, d.Direction)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("debt %s: %w", d.ID, err)
		}
	}
	for _, r := range b.Receivables {
		if err := unique("debt", r.ID); err != nil {
			return err
		}
		if r.Direction != DebtOwedByUs {
			return NewValidationError("receivables", "receivable %s has direction %q", r.ID, r.Direction)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("receivable %s: %w", r.ID, err)
		}
	}
	for _, h := range b.CapitalHistory {
		if err := unique("capital_history", h.ID); err != nil {
			return err
		}
	}
	return nil
}
