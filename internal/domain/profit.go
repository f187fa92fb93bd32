package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBreakdownThreshold is the magnitude under which breakdown lines are dropped.
var DefaultBreakdownThreshold = decimal.New(1, -3)

// ProfitLine is one labelled amount in a profit or cost breakdown.
type ProfitLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitReport is the profit and cost analysis of a date window.
type ProfitReport struct {
	Range           DateRange
	TotalProfit     decimal.Decimal
	TotalCosts      decimal.Decimal
	NetProfit       decimal.Decimal
	ProfitBreakdown []ProfitLine
	CostBreakdown   []ProfitLine
}

// CostBasisKey identifies a weighted-average acquisition rate.
type CostBasisKey struct {
	Currency string
	Channel  Channel
}

// CostBasis maps currency and channel to the weighted-average buy rate.
type CostBasis map[CostBasisKey]decimal.Decimal

// Rate returns the cost basis, zero when no buys are known.
func (c CostBasis) Rate(currency string, channel Channel) decimal.Decimal {
	return c[CostBasisKey{Currency: strings.ToUpper(currency), Channel: channel}]
}

// WeightedCostBasis computes total local spent / total foreign acquired for every
// active buy group in txs. txs must be in ascending order.
func WeightedCostBasis(txs []*Transaction) CostBasis {
	type acc struct{ local, quantity decimal.Decimal }
	sums := make(map[CostBasisKey]*acc)

	for _, p := range primaries(txs) {
		buy, ok := p.Operation.(BuyOperation)
		if !ok {
			continue
		}
		key := CostBasisKey{Currency: strings.ToUpper(buy.Currency), Channel: buy.Channel}
		a := sums[key]
		if a == nil {
			a = &acc{}
			sums[key] = a
		}
		a.local = a.local.Add(buy.LocalAmount)
		a.quantity = a.quantity.Add(buy.Quantity)
	}

	basis := make(CostBasis, len(sums))
	for key, a := range sums {
		if a.quantity.IsPositive() {
			basis[key] = a.local.Div(a.quantity)
		}
	}
	return basis
}

// AnalyzeProfit classifies the active groups inside window into profit and cost
// lines. all is the entire ledger in ascending order; cost basis is computed over
// all of it, not just the window.
func AnalyzeProfit(all []*Transaction, window DateRange, threshold decimal.Decimal) ProfitReport {
	basis := WeightedCostBasis(all)

	var inWindow []*Transaction
	for _, t := range all {
		if !t.Deleted && window.Contains(t.CreatedAt) {
			inWindow = append(inWindow, t)
		}
	}

	var profits, costs lineAccumulator
	for _, p := range primaries(inWindow) {
		switch op := p.Operation.(type) {
		case SellOperation:
			cost := basis.Rate(op.Currency, op.Channel)
			if op.CostRate.Valid && op.CostRate.Decimal.IsPositive() {
				cost = op.CostRate.Decimal
			}
			if !cost.IsPositive() {
				continue
			}
			label := fmt.Sprintf("Trading %s (%s)", strings.ToUpper(op.Currency), op.Channel)
			profits.add(label, op.Rate.Sub(cost).Mul(op.Quantity))
		case SaleOperation:
			profits.add("Point of sale", op.NetMargin())
		case ExchangeFeeOperation:
			profits.add("Exchange fees", op.Amount)
		case AdjustmentOperation:
			if op.Loss {
				costs.add("Manual losses", op.Amount)
			} else {
				profits.add("Manual profits", op.Amount)
			}
		case ExpenseOperation:
			category := strings.TrimSpace(op.Category)
			if category == "" {
				category = "Uncategorized"
			}
			costs.add("Expense: "+category, op.Amount)
		case BuyOperation, TransferOperation, DepositOperation, WithdrawalOperation, DebtPaymentOperation:
		}
	}

	report := ProfitReport{
		Range:           window,
		TotalProfit:     profits.total(),
		TotalCosts:      costs.total(),
		ProfitBreakdown: profits.lines(threshold),
		CostBreakdown:   costs.lines(threshold),
	}
	report.NetProfit = report.TotalProfit.Sub(report.TotalCosts)
	return report
}

// primaries returns the primary transaction of each active group, in order of
// first appearance. The primary is the first member carrying an operation.
func primaries(txs []*Transaction) []*Transaction {
	seen := make(map[string]bool)
	var out []*Transaction
	for _, t := range txs {
		if t.Deleted || t.Operation == nil {
			continue
		}
		key := t.GroupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

type lineAccumulator struct {
	order  []string
	values map[string]decimal.Decimal
}

func (a *lineAccumulator) add(label string, amount decimal.Decimal) {
	if a.values == nil {
		a.values = make(map[string]decimal.Decimal)
	}
	if _, ok := a.values[label]; !ok {
		a.order = append(a.order, label)
	}
	a.values[label] = a.values[label].Add(amount)
}

func (a *lineAccumulator) total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range a.values {
		sum = sum.Add(v)
	}
	return sum
}

func (a *lineAccumulator) lines(threshold decimal.Decimal) []ProfitLine {
	out := make([]ProfitLine, 0, len(a.order))
	for _, label := range a.order {
		v := a.values[label]
		if v.Abs().LessThan(threshold) {
			continue
		}
		out = append(out, ProfitLine{Label: label, Amount: v})
	}
	return out
}
