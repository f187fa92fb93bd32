package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReferenceCurrency is the currency capital closings are expressed in.
const DefaultReferenceCurrency = "LYD"

// DefaultAllocationTolerance is the absolute slack allowed between split parts and a total.
var DefaultAllocationTolerance = decimal.New(1, -3)

// CapitalItem is one audited contribution to a currency's capital.
// Its contribution is Value * Sign.
type CapitalItem struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	Sign  int             `json:"sign"`
}

// Contribution returns the signed value of the item.
func (i CapitalItem) Contribution() decimal.Decimal {
	if i.Sign < 0 {
		return i.Value.Neg()
	}
	return i.Value
}

// CapitalInputs is the ledger state capital is computed from.
type CapitalInputs struct {
	Assets      []*Asset
	Debts       []*Debt
	Receivables []*Debt
	InFlight    []*Transaction
}

// CapitalTotals holds one capital figure per currency plus the items behind it.
type CapitalTotals struct {
	Totals    map[string]decimal.Decimal
	Breakdown map[string][]CapitalItem
}

// NewCapitalTotals creates totals from raw per-currency figures without itemization.
func NewCapitalTotals(totals map[string]decimal.Decimal) CapitalTotals {
	c := CapitalTotals{
		Totals:    make(map[string]decimal.Decimal, len(totals)),
		Breakdown: make(map[string][]CapitalItem),
	}
	for cur, v := range totals {
		c.Totals[cur] = v
	}
	return c
}

func (c *CapitalTotals) add(currency string, item CapitalItem) {
	if item.Value.IsZero() {
		return
	}
	c.Totals[currency] = c.Totals[currency].Add(item.Contribution())
	c.Breakdown[currency] = append(c.Breakdown[currency], item)
}

// Total returns the capital for a currency, zero when untracked.
func (c CapitalTotals) Total(currency string) decimal.Decimal {
	return c.Totals[currency]
}

// Currencies returns tracked currencies in lexical order.
func (c CapitalTotals) Currencies() []string {
	out := make([]string, 0, len(c.Totals))
	for cur := range c.Totals {
		out = append(out, cur)
	}
	slices.Sort(out)
	return out
}

// ComputeCapital derives per-currency capital: cash and bank balances, debts owed
// to the business and in-flight spend add; receivables owed by the business subtract.
func ComputeCapital(in CapitalInputs) CapitalTotals {
	c := NewCapitalTotals(nil)

	for _, a := range in.Assets {
		c.add(a.Currency, CapitalItem{Label: a.Name + " (" + string(a.Kind) + ")", Value: a.Balance, Sign: 1})
	}

	for _, d := range in.Debts {
		c.add(d.Currency, CapitalItem{Label: "Debt: " + d.Party, Value: d.Outstanding(), Sign: 1})
	}

	for _, t := range in.InFlight {
		w, ok := t.Operation.(WithdrawalOperation)
		if !ok || !w.InFlight || t.Deleted {
			continue
		}
		label := "In flight: " + w.Purpose
		if w.Purpose == "" {
			label = "In flight: " + t.Description
		}
		c.add(t.Currency, CapitalItem{Label: label, Value: t.Amount.Neg(), Sign: 1})
	}

	for _, r := range in.Receivables {
		c.add(r.Currency, CapitalItem{Label: "Receivable: " + r.Party, Value: r.Outstanding(), Sign: -1})
	}

	return c
}

// AllocationPart converts Amount of a currency at Rate.
type AllocationPart struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// RateInput is either a single rate or an ordered split allocation.
type RateInput struct {
	Rate  decimal.NullDecimal `json:"rate"`
	Parts []AllocationPart    `json:"parts,omitempty"`
}

// SingleRate converts a whole currency total at one rate.
func SingleRate(rate decimal.Decimal) RateInput {
	return RateInput{Rate: decimal.NewNullDecimal(rate)}
}

// SplitRate converts a currency total in parts at different rates.
func SplitRate(parts ...AllocationPart) RateInput {
	return RateInput{Parts: parts}
}

// IsSplit reports whether the input uses allocation parts.
func (r RateInput) IsSplit() bool { return len(r.Parts) > 0 }

// IsEmpty reports whether no rate was supplied at all.
func (r RateInput) IsEmpty() bool { return !r.Rate.Valid && len(r.Parts) == 0 }

// Allocated sums the part amounts.
func (r RateInput) Allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.Parts {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// ClosingPolicy holds the closing parameters.
type ClosingPolicy struct {
	ReferenceCurrency string
	Tolerance         decimal.Decimal
}

// DefaultClosingPolicy closes in LYD with a 0.001 allocation tolerance.
func DefaultClosingPolicy() ClosingPolicy {
	return ClosingPolicy{
		ReferenceCurrency: DefaultReferenceCurrency,
		Tolerance:         DefaultAllocationTolerance,
	}
}

// CapitalHistoryEntry is an immutable capital closing snapshot.
type CapitalHistoryEntry struct {
	Timestamp         time.Time                  `json:"timestamp"`
	PerCurrency       map[string]decimal.Decimal `json:"per_currency"`
	Converted         map[string]decimal.Decimal `json:"converted,omitempty"`
	Rates             map[string]RateInput       `json:"rates"`
	Breakdown         map[string][]CapitalItem   `json:"breakdown,omitempty"`
	ID                string                     `json:"id"`
	ReferenceCurrency string                     `json:"reference_currency"`
	Note              string                     `json:"note,omitempty"`
	Total             decimal.Decimal            `json:"total"`
}

// Clone deep-copies the maps, the split parts and the breakdown items.
func (e *CapitalHistoryEntry) Clone() *CapitalHistoryEntry {
	c := *e
	c.PerCurrency = maps.Clone(e.PerCurrency)
	c.Converted = maps.Clone(e.Converted)
	if e.Rates != nil {
		c.Rates = make(map[string]RateInput, len(e.Rates))
		for k, r := range e.Rates {
			r.Parts = slices.Clone(r.Parts)
			c.Rates[k] = r
		}
	}
	if e.Breakdown != nil {
		c.Breakdown = make(map[string][]CapitalItem, len(e.Breakdown))
		for k, items := range e.Breakdown {
			c.Breakdown[k] = slices.Clone(items)
		}
	}
	return &c
}

// CloseCapital converts every currency total into the reference currency.
// It fails without producing an entry when any rate is missing or any split
// allocation does not reconcile with its total.
func CloseCapital(totals CapitalTotals, rates map[string]RateInput, policy ClosingPolicy) (*CapitalHistoryEntry, error) {
	ref := policy.ReferenceCurrency
	if ref == "" {
		ref = DefaultReferenceCurrency
	}

	entry := &CapitalHistoryEntry{
		ReferenceCurrency: ref,
		PerCurrency:       make(map[string]decimal.Decimal, len(totals.Totals)),
		Converted:         make(map[string]decimal.Decimal, len(totals.Totals)),
		Rates:             make(map[string]RateInput),
		Breakdown:         make(map[string][]CapitalItem, len(totals.Breakdown)),
		Total:             totals.Total(ref),
	}
	entry.Converted[ref] = entry.Total

	for _, cur := range totals.Currencies() {
		total := totals.Total(cur)
		entry.PerCurrency[cur] = total
		if items := totals.Breakdown[cur]; len(items) > 0 {
			entry.Breakdown[cur] = append([]CapitalItem(nil), items...)
		}
		if cur == ref {
			continue
		}

		rate, ok := rates[cur]
		if !ok || rate.IsEmpty() {
			if total.IsZero() {
				continue
			}
			return nil, &MissingRateError{Currency: cur, Total: total}
		}

		converted, err := convert(cur, total, rate, policy.Tolerance)
		if err != nil {
			return nil, err
		}

		entry.Converted[cur] = converted
		entry.Rates[cur] = rate
		entry.Total = entry.Total.Add(converted)
	}

	return entry, nil
}

func convert(currency string, total decimal.Decimal, rate RateInput, tolerance decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsSplit() {
		if !rate.Rate.Valid || !rate.Rate.Decimal.IsPositive() {
			if total.IsZero() {
				return decimal.Zero, nil
			}
			return decimal.Zero, &MissingRateError{Currency: currency, Total: total}
		}
		return total.Mul(rate.Rate.Decimal), nil
	}

	allocated := rate.Allocated()
	discrepancy := total.Sub(allocated)
	if discrepancy.Abs().GreaterThan(tolerance) {
		return decimal.Zero, &AllocationMismatchError{
			Currency:    currency,
			Total:       total,
			Allocated:   allocated,
			Discrepancy: discrepancy,
		}
	}

	converted := decimal.Zero
	for _, p := range rate.Parts {
		if !p.Rate.IsPositive() {
			return decimal.Zero, &MissingRateError{Currency: currency, Total: total}
		}
		converted = converted.Add(p.Amount.Mul(p.Rate))
	}
	return converted, nil
}

// CapitalEvolution compares two closings.
type CapitalEvolution struct {
	Start      *CapitalHistoryEntry
	End        *CapitalHistoryEntry
	StartTotal decimal.Decimal
	EndTotal   decimal.Decimal
	Change     decimal.Decimal
	Percentage decimal.Decimal
}

// NewCapitalEvolution computes change and percentage change between closings.
// A missing or zero start yields a zero percentage.
func NewCapitalEvolution(start, end *CapitalHistoryEntry) CapitalEvolution {
	ev := CapitalEvolution{Start: start, End: end}
	if start != nil {
		ev.StartTotal = start.Total
	}
	if end != nil {
		ev.EndTotal = end.Total
	}

	ev.Change = ev.EndTotal.Sub(ev.StartTotal)
	if !ev.StartTotal.IsZero() {
		ev.Percentage = ev.Change.Div(ev.StartTotal.Abs()).Mul(decimal.NewFromInt(100))
	}
	return ev
}
