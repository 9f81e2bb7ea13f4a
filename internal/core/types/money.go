// Package types provides common type aliases and monetary helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MaxAmount is the upper bound for a single ledger amount.
var MaxAmount = decimal.RequireFromString("999999999.99")

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// FloorCents truncates a Money value to 2 decimal places.
// Ledger arithmetic never rounds up: a settlement can only consume
// what was actually paid.
func FloorCents(m Money) Money {
	return m.RoundFloor(2)
}

// HasValidScale reports whether m carries at most 2 decimal places.
func HasValidScale(m Money) bool {
	return m.Equal(m.Truncate(2))
}

// InAmountRange reports whether m is a valid ledger amount:
// strictly positive and within the supported bound.
func InAmountRange(m Money) bool {
	return m.IsPositive() && m.LessThanOrEqual(MaxAmount)
}
