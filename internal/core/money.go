// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and rendering cents with exactly two fractional digits.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds a single amount at 100 billion. Balances stay far
// below the int64 range for any ledger of fewer than ~900k such entries.
const MaxAmountCents int64 = 1e13

var maxCents = decimal.NewFromInt(MaxAmountCents)

// ParseAmount converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is a valid amount; signs,
// exponents, extra separators and non-digit characters are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (half-up)
//	ParseAmount("12.344") -> 1234, nil
func ParseAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !plainDecimal(s) {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Amounts are never negative, so rounding half away from zero is half-up.
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// plainDecimal reports whether s is ASCII digits with at most one '.'
// and at least one digit.
func plainDecimal(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// String renders the amount with exactly two fractional digits, e.g. "-40.00".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// Float returns the amount as a float64 for spreadsheet cells and JSON
// clients. Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}
