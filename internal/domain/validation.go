package domain

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNameLength   = 255
	MinNameLength   = 1
	MaxAmount       = "1000000000000" // 1 trillion
	MaxPageSize     = 1000
	DefaultPageSize = 50
)

// ValidateName validates a display name such as an asset, bank or party name.
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinNameLength {
		return NewValidationError(field, "cannot be empty")
	}

	if len(name) > MaxNameLength {
		return NewValidationError(field, "exceeds %d characters", MaxNameLength)
	}

	return nil
}

// ValidateCurrency validates an ISO 4217 currency code. Lowercase input is accepted.
func ValidateCurrency(currency string) error {
	code := NormalizeCurrency(currency)

	if len(code) != 3 || money.GetCurrency(code) == nil {
		return NewValidationError("currency", "%q is not a valid ISO 4217 currency code", currency)
	}

	return nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidatePositiveAmount validates an operation amount.
func ValidatePositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError(field, "must be positive")
	}

	maxAmount := decimal.RequireFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return NewValidationError(field, "maximum amount is %s", MaxAmount)
	}

	return nil
}

// ParseAmount parses a decimal amount from user input.
// Empty, non-numeric and non-finite input is rejected.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, NewValidationError(field, "is required")
	}

	switch strings.ToLower(strings.TrimLeft(raw, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, NewValidationError(field, "%q is not a finite number", raw)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, NewValidationError(field, "%q is not a number", raw)
	}

	return d, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	if limit < 0 {
		return 0, 0, NewValidationError("limit", "must not be negative")
	}

	if limit == 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
