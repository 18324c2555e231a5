// Package money provides currency-safe arithmetic for invoice and commission
// amounts using integer cents, wrapping go-money for safe addition and
// shopspring/decimal for precise multiplication.
package money

import (
	"errors"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DOP is the Dominican peso, the ledger's working currency.
const DOP = "DOP"

// Money represents a monetary value in a single currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from cents (minor units).
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal creates Money from a decimal amount in major units.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(DOP)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// Zero returns a zero value for the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero reports whether the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add adds two Money values. Returns an error if currencies differ.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// MustAdd adds two Money values, panicking on currency mismatch.
func (m *Money) MustAdd(other *Money) *Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// ToDecimal converts to a decimal amount in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// MultiplyDecimal multiplies by a decimal factor with exact arithmetic.
func (m *Money) MultiplyDecimal(factor decimal.Decimal) *Money {
	if m == nil || m.m == nil {
		return Zero(DOP)
	}
	return NewFromDecimal(m.ToDecimal().Mul(factor), m.Currency())
}

// PercentageDecimal calculates a percentage of the amount, e.g. a commission
// rate of decimal 12.5 means 12.5%.
func (m *Money) PercentageDecimal(percent decimal.Decimal) *Money {
	if m == nil || m.m == nil {
		return Zero(DOP)
	}
	pct := percent.Div(decimal.NewFromInt(100))
	return NewFromDecimal(m.ToDecimal().Mul(pct), m.Currency())
}

// Display returns a formatted string for display, e.g. "RD$1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return money.New(0, DOP).Display()
	}
	return m.m.Display()
}

// String returns the amount as a plain decimal string.
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(2)
}

// Split divides money into n equal parts, distributing the remainder so no
// cent is lost.
func (m *Money) Split(n int) ([]*Money, error) {
	if m == nil || m.m == nil {
		return nil, errors.New("cannot split nil money")
	}
	if n <= 0 {
		return nil, errors.New("n must be positive")
	}

	parts, err := m.m.Split(n)
	if err != nil {
		return nil, err
	}

	result := make([]*Money, len(parts))
	for i, p := range parts {
		result[i] = &Money{m: p}
	}
	return result, nil
}
