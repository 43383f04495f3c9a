// Package core holds the expense domain model, its validation rules and the
// pure projections (filter, sort, summarize) derived from expense lists.
//
// This file is the single canonical amount rule. Both the transport schemas
// and the storage layer go through ParseAmount, so the two-decimal-places
// constraint is judged exactly once, on the decimal string, never by
// floating-point rounding.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Money is a positive amount in integer cents.
type Money struct {
	Cents int64
}

// Amount parse failures, mapped to field messages at the schema boundary.
var (
	ErrAmountSyntax    = errors.New("amount is not a valid decimal number")
	ErrAmountRange     = errors.New("amount must be positive")
	ErrAmountFinite    = errors.New("amount must be finite")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
)

// maxWholeUnits guards the cents multiplication against int64 overflow.
const maxWholeUnits = math.MaxInt64 / 100

// ParseAmount converts a decimal string to Money.
//
// Accepted: a plain positive decimal with at most two fractional digits,
// e.g. "12", "12.5", "12.50". Exponent notation is normalized first so that
// "1e2" is treated as "100". Anything with more than two fractional digits
// is rejected outright; 1.005 never rounds to 1.01 or 1.00.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrAmountSyntax
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Money{}, ErrAmountSyntax
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Money{}, ErrAmountFinite
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrAmountRange
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return Money{}, ErrAmountSyntax
	}
	if len(frac) > 2 {
		return Money{}, ErrAmountPrecision
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > maxWholeUnits {
		return Money{}, ErrAmountRange
	}
	cents := units * 100
	if frac != "" {
		cents += int64(frac[0]-'0') * 10
		if len(frac) == 2 {
			cents += int64(frac[1] - '0')
		}
	}
	if cents <= 0 {
		return Money{}, ErrAmountRange
	}
	return Money{Cents: cents}, nil
}

// Float64 returns the decimal value for JSON and display. Amounts are capped
// at two fractional digits, so the float64 representation is exact well
// beyond any realistic expense.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
