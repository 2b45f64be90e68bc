// Package money centralizes decimal parsing and rounding for all monetary
// values. Amounts arrive from the UI in either German ("1.234,56") or
// machine ("1234.56") notation; everything downstream works on
// shopspring decimals rounded to 2 fractional digits.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a user-entered amount string into a decimal.
// Accepted notations:
//
//	"1234.56"   plain decimal point
//	"1234,56"   decimal comma
//	"1.234,56"  thousands dot + decimal comma
//	"1,234.56"  thousands comma + decimal point
//
// When both separators occur, the one appearing last is the decimal
// separator. An empty string parses to zero.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56 — dots are grouping
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56 — commas are grouping
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ungültiger Betrag %q: %w", s, err)
	}
	return d, nil
}

// Round rounds to 2 fractional digits, half away from zero.
// (decimal.Round pre-scales by 10^2 and rounds the half case away from
// zero, which matches the rounding rule used on every invoice total.)
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount with exactly 2 decimal digits ("120.00").
func Format(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
