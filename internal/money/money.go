// Package money implements integer minor-unit amounts tagged with an ISO 4217
// currency. Fractional intermediate values (percentages, tax) are carried as
// decimals and converted back with FromDecimal, which rounds half-up exactly once.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("invalid currency code")
)

var hundred = decimal.NewFromInt(100)

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

func Zero(currency string) Money {
	return New(0, currency)
}

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}

	return unit.String(), nil
}

// FromDecimal converts a minor-unit decimal to Money, rounding half-up.
func FromDecimal(d decimal.Decimal, currency string) Money {
	return New(d.Round(0).IntPart(), currency)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

func (m Money) SameCurrency(o Money) bool {
	return strings.EqualFold(m.Currency, o.Currency)
}

func (m Money) Add(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}

	return New(m.Amount+o.Amount, m.Currency), nil
}

func (m Money) Sub(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}

	return New(m.Amount-o.Amount, m.Currency), nil
}

// Times multiplies by a quantity. Integer multiplication is exact.
func (m Money) Times(quantity int) Money {
	return New(m.Amount*int64(quantity), m.Currency)
}

// Percent returns the unrounded minor-unit value of pct percent of m.
func (m Money) Percent(pct decimal.Decimal) decimal.Decimal {
	return m.Decimal().Mul(pct).Div(hundred)
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(o Money) (int, error) {
	if !m.SameCurrency(o) {
		return 0, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}

	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m.Amount < 0 {
		return Zero(m.Currency)
	}

	return m
}

// String renders the amount in major units, e.g. "1049.50 INR".
func (m Money) String() string {
	scale := 2

	if unit, err := currency.ParseISO(m.Currency); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	return decimal.New(m.Amount, -int32(scale)).StringFixed(int32(scale)) + " " + m.Currency
}

// Sum adds amounts that all share the given currency.
func Sum(currency string, amounts ...Money) (Money, error) {
	total := Zero(currency)

	for _, a := range amounts {
		var err error

		total, err = total.Add(a)
		if err != nil {
			return Money{}, err
		}
	}

	return total, nil
}
