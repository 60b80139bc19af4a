package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (reporting currency)
	VND Currency = "VND" // Vietnamese Dong
	EUR Currency = "EUR" // Euro
	SGD Currency = "SGD" // Singapore Dollar
	CNY Currency = "CNY" // Chinese Yuan
	JPY Currency = "JPY" // Japanese Yen
)

// ReportingCurrency is the currency every invoice additionally reports against
const ReportingCurrency = USD

// String returns the string representation of the currency code
func (c Currency) String() string {
	return string(c)
}

// IsValid checks if the currency is one of the supported codes
func (c Currency) IsValid() bool {
	switch c {
	case USD, VND, EUR, SGD, CNY, JPY:
		return true
	}
	return false
}

// Money is a value object representing a monetary amount in a specific currency.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a string amount
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// ParseMoney parses the combined "123.45 USD" form found in source cost columns.
// The combined string must never be re-parsed downstream; callers ingest it once
// at the boundary and carry the (amount, currency) pair from there on.
func ParseMoney(combined string) (Money, error) {
	fields := strings.Fields(strings.TrimSpace(combined))
	switch len(fields) {
	case 0:
		return Money{}, errors.New("empty money string")
	case 1:
		return Money{}, fmt.Errorf("money string %q has no currency code", combined)
	}
	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount in %q: %w", combined, err)
	}
	code := strings.ToUpper(fields[len(fields)-1])
	return NewMoney(amount, Currency(code))
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts.
// Returns an error if the currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Mul returns a new Money with the amount multiplied by the given factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Convert returns a new Money in the target currency at the given rate
func (m Money) Convert(rate decimal.Decimal, target Currency) Money {
	return Money{amount: m.amount.Mul(rate), currency: target}
}

// Round returns a new Money rounded to the given number of decimal places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Equal returns true if both amount and currency match
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String returns "123.45 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.String(), m.currency)
}
