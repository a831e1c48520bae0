// Package core provides the domain types shared by the analytics pipeline,
// the storage backends and the HTTP API.
//
// This file contains functions for parsing monetary amounts typed by users
// or read back from spreadsheets, and for rounding them for display.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Bounds for a single quantity, price or income figure.
const (
	maxAmountIntDigits = 12 // |value| < 1e12
	maxAmountScale     = 6
)

// CheckAmount returns ErrInvalidAmount when d has more than twelve integer
// digits or more than six decimals. Trailing zeros do not count.
func CheckAmount(d decimal.Decimal) error {
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return nil
	}
	digits := coef.Abs(coef).String()
	exp := int64(d.Exponent())
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exp++
	}
	if int64(len(digits))+exp > maxAmountIntDigits || exp < -maxAmountScale {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, boundedString(d))
	}
	return nil
}

// boundedString prints d without expanding a huge exponent.
func boundedString(d decimal.Decimal) string {
	return fmt.Sprintf("%se%d", d.Coefficient().String(), d.Exponent())
}

// ParseAmount converts a user-typed decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading currency symbol. No rounding is applied; the amount keeps
// every digit the user typed. Returns ErrInvalidAmount for invalid formats,
// negative values and amounts outside the CheckAmount bounds.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("$ 3.5")  -> 3.5, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if len(parts) == 2 && parts[1] == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// RoundCents rounds an amount to two decimal places, half away from zero.
// Only presentation code should call it; sums are kept exact.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
