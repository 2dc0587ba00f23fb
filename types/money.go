// Package types provides the value types shared across rosca.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two amounts in different currencies meet.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money represents a monetary value in the smallest currency unit.
// Arithmetic is integer-only.
//
// Examples:
//   - USD(4900) = $49.00 (4900 cents)
//   - EUR(19900) = €199.00 (19900 cents)
//   - JPY(100) = ¥100
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// JPY creates a Money value in Japanese Yen (no decimal).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// New creates a Money value in an arbitrary currency.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// ParseMajor parses a human amount in major units ("49.99") into minor units.
// Amounts with more fractional digits than the currency allows are rejected.
func ParseMajor(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	minor := d.Shift(int32(currencyDecimals(currency)))
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("money: %q has too many decimal places for %s", s, strings.ToUpper(currency))
	}
	if !minor.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("money: %q out of range", s)
	}
	return New(minor.IntPart(), currency), nil
}

// Compatible reports whether both values share a currency.
// A zero value with no currency is compatible with anything.
func (m Money) Compatible(other Money) bool {
	return m.Currency == other.Currency || m.Currency == "" || other.Currency == ""
}

// CheckedAdd adds two Money values, failing instead of panicking on a currency mismatch.
func (m Money) CheckedAdd(other Money) (Money, error) {
	if !m.Compatible(other) {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.currencyWith(other)}, nil
}

// CheckedSubtract subtracts another Money value, failing on a currency mismatch.
func (m Money) CheckedSubtract(other Money) (Money, error) {
	if !m.Compatible(other) {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.currencyWith(other)}, nil
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	sum, err := m.CheckedAdd(other)
	if err != nil {
		panic(err.Error())
	}
	return sum
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	diff, err := m.CheckedSubtract(other)
	if err != nil {
		panic(err.Error())
	}
	return diff
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	if !m.Compatible(other) {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
	return m.Amount < other.Amount
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(currencyDecimals(m.Currency)))
}

// FormatMajor returns the major unit string without currency symbol.
// "49.00" for USD(4900), "100" for JPY(100).
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(int32(currencyDecimals(m.Currency)))
}

// String returns a human-readable string with currency symbol.
// Examples: "$49.00", "€199.00", "£99.00", "¥100"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = New(raw.Amount, raw.Currency)
	return nil
}

func (m Money) currencyWith(other Money) string {
	if m.Currency != "" {
		return m.Currency
	}
	return other.Currency
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
		"chf": "CHF ",
		"ngn": "₦",
		"ghs": "GH₵",
		"kes": "KSh ",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp", "pyg", "idr", "ugx", "xof", "xaf":
		return 0
	default:
		return 2
	}
}
