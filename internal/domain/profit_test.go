package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func buyGroup(id string, at time.Time, local, qty string) []*Transaction {
	return []*Transaction{
		{
			ID: id + "-usd", GroupID: id, CreatedAt: at, Currency: "USD", AssetID: "vault-usd", Amount: dec(qty),
			Operation: BuyOperation{Currency: "USD", Channel: ChannelCash, Quantity: dec(qty), LocalAmount: dec(local)},
		},
		{ID: id + "-lyd", GroupID: id, CreatedAt: at, Currency: "LYD", AssetID: "vault-lyd", Amount: dec(local).Neg()},
	}
}

func sellGroup(id string, at time.Time, qty, rate string) []*Transaction {
	return []*Transaction{
		{
			ID: id + "-usd", GroupID: id, CreatedAt: at, Currency: "USD", AssetID: "vault-usd", Amount: dec(qty).Neg(),
			Operation: SellOperation{Currency: "USD", Channel: ChannelCash, Quantity: dec(qty), Rate: dec(rate)},
		},
		{ID: id + "-lyd", GroupID: id, CreatedAt: at, Currency: "LYD", AssetID: "vault-lyd", Amount: dec(qty).Mul(dec(rate))},
	}
}

func ledgerOf(groups ...[]*Transaction) []*Transaction {
	var out []*Transaction
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func TestWeightedCostBasis(t *testing.T) {
	deleted := buyGroup("b3", day, "99999", "1")
	for _, tx := range deleted {
		tx.Deleted = true
	}

	all := ledgerOf(
		buyGroup("b1", day, "1000", "100"),
		buyGroup("b2", day.Add(time.Hour), "2200", "200"),
		deleted,
	)

	basis := WeightedCostBasis(all)

	rate := basis.Rate("usd", ChannelCash)
	assert.Equal(t, "10.667", rate.StringFixed(3))
	assert.True(t, basis.Rate("USD", ChannelBank).IsZero())
}

func TestAnalyzeProfit_TradingScenario(t *testing.T) {
	all := ledgerOf(
		buyGroup("b1", day, "1000", "100"),
		buyGroup("b2", day.Add(time.Hour), "2200", "200"),
		sellGroup("s1", day.Add(2*time.Hour), "50", "12"),
	)

	report := AnalyzeProfit(all, DateRange{From: day, To: day.Add(24 * time.Hour)}, DefaultBreakdownThreshold)

	assert.Equal(t, "66.67", report.TotalProfit.StringFixed(2))
	assert.True(t, report.TotalCosts.IsZero())
	assert.Equal(t, report.TotalProfit.String(), report.NetProfit.String())
	require.Len(t, report.ProfitBreakdown, 1)
	assert.Equal(t, "Trading USD (cash)", report.ProfitBreakdown[0].Label)
}

func TestAnalyzeProfit_CostBasisUsesWholeLedger(t *testing.T) {
	all := ledgerOf(
		buyGroup("b1", day.AddDate(0, -1, 0), "1000", "100"),
		sellGroup("s1", day, "10", "11"),
	)

	report := AnalyzeProfit(all, DateRange{From: day, To: day}, DefaultBreakdownThreshold)

	assert.True(t, report.TotalProfit.Equal(dec("10")), "got %s", report.TotalProfit)
}

func TestAnalyzeProfit_OverrideAndMissingBasis(t *testing.T) {
	override := sellGroup("s1", day, "10", "12")
	sell := override[0].Operation.(SellOperation)
	sell.CostRate = decimal.NewNullDecimal(dec("11.5"))
	override[0].Operation = sell

	noBasis := sellGroup("s2", day, "10", "12")
	eur := noBasis[0].Operation.(SellOperation)
	eur.Currency = "EUR"
	noBasis[0].Operation = eur

	all := ledgerOf(buyGroup("b1", day, "1000", "100"), override, noBasis)

	report := AnalyzeProfit(all, DateRange{}, DefaultBreakdownThreshold)

	assert.True(t, report.TotalProfit.Equal(dec("5")), "got %s", report.TotalProfit)
	require.Len(t, report.ProfitBreakdown, 1)
}

func TestAnalyzeProfit_OtherSourcesAndCosts(t *testing.T) {
	all := []*Transaction{
		{ID: "fee", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("15"), Operation: ExchangeFeeOperation{Amount: dec("15")}},
		{ID: "pos", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("120"), Operation: SaleOperation{Revenue: dec("120"), Cost: dec("100")}},
		{ID: "adj", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("7"), Operation: AdjustmentOperation{Amount: dec("7")}},
		{ID: "loss", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("-3"), Operation: AdjustmentOperation{Amount: dec("3"), Loss: true}},
		{ID: "rent", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("-500"), Operation: ExpenseOperation{Category: "Rent", Amount: dec("500")}},
		{ID: "rent2", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("-100"), Operation: ExpenseOperation{Category: "Rent", Amount: dec("100")}},
		{ID: "tea", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("-0.0005"), Operation: ExpenseOperation{Category: "Tea", Amount: dec("0.0005")}},
		{ID: "gone", CreatedAt: day, Currency: "LYD", AssetID: "v", Amount: dec("-50"), Deleted: true, Operation: ExpenseOperation{Category: "Rent", Amount: dec("50")}},
		{ID: "late", CreatedAt: day.AddDate(0, 0, 2), Currency: "LYD", AssetID: "v", Amount: dec("-80"), Operation: ExpenseOperation{Category: "Rent", Amount: dec("80")}},
	}

	report := AnalyzeProfit(all, DateRange{From: day, To: day.Add(time.Hour)}, DefaultBreakdownThreshold)

	assert.True(t, report.TotalProfit.Equal(dec("42")), "profit %s", report.TotalProfit)
	assert.True(t, report.TotalCosts.Equal(dec("603.0005")), "costs %s", report.TotalCosts)
	assert.True(t, report.NetProfit.Equal(dec("-561.0005")), "net %s", report.NetProfit)

	labels := make([]string, 0, len(report.CostBreakdown))
	for _, line := range report.CostBreakdown {
		labels = append(labels, line.Label)
	}
	assert.Equal(t, []string{"Manual losses", "Expense: Rent"}, labels)
	assert.True(t, report.CostBreakdown[1].Amount.Equal(dec("600")))
}

func TestAnalyzeProfit_GroupCountedOnce(t *testing.T) {
	sell := sellGroup("s1", day, "10", "12")
	dup := sell[0].Clone()
	dup.ID = "s1-extra"
	all := ledgerOf(buyGroup("b1", day, "1000", "100"), sell, []*Transaction{dup})

	report := AnalyzeProfit(all, DateRange{}, DefaultBreakdownThreshold)

	assert.True(t, report.TotalProfit.Equal(dec("20")), "got %s", report.TotalProfit)
}
