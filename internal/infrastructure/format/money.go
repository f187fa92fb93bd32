// Package format renders ledger amounts for people.
package format

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// Amount renders d in currency with its symbol, grouping and minor units,
// for example "$1,234.50". Unknown currencies fall back to "<amount> <code>".
func Amount(d decimal.Decimal, currency string) string {
	code := domain.NormalizeCurrency(currency)
	c := money.GetCurrency(code)
	if c == nil {
		return d.String() + " " + code
	}

	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// Rate renders an exchange rate with up to four decimals.
func Rate(d decimal.Decimal) string {
	return d.Round(4).String()
}

// Percent renders a percentage with two decimals.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
