package money

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("please enter a valid amount (e.g. 10.50)")
)

// amountPattern accepts unsigned decimals with at most two fractional digits.
// Sign characters, grouping separators and exponents are all rejected.
var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Valid reports whether s is a well-formed, strictly positive amount. Every
// mutation that carries money must pass its amount through here before it is
// dispatched.
func Valid(s string) bool {
	if !amountPattern.MatchString(s) {
		return false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// Parse converts a user-entered amount into a decimal value, returning
// ErrInvalidAmount for anything Valid rejects.
func Parse(s string) (decimal.Decimal, error) {
	if !Valid(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromString(s)
}

// Format renders an amount for display with exactly two fractional digits.
// Displayed amounts are never signed; direction is conveyed by the caller.
func Format(d decimal.Decimal) string {
	return d.Abs().StringFixed(2)
}
