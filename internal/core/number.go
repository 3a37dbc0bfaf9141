// Package core provides the domain model and the pure aggregation logic:
// number and date helpers, currency conversion, savings snapshots and the
// expense split between the two parties.
//
// This file contains rounding, formatting and decimal parsing helpers.
// Amounts are float64 throughout; rounding goes through decimal so that
// halves are rounded away from zero.
package core

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the precision of persisted and displayed amounts.
const DefaultDecimals = 2

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SafeNumber returns v, or 0 when v is not finite.
func SafeNumber(v float64) float64 {
	if !IsFinite(v) {
		return 0
	}
	return v
}

// RoundToDecimals rounds v to the given number of decimals, halves away from zero.
// Non-finite values round to 0.
//
// Examples:
//
//	RoundToDecimals(54.545454, 2) -> 54.55
//	RoundToDecimals(-2.345, 2)    -> -2.35
func RoundToDecimals(v float64, places int32) float64 {
	if !IsFinite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 rounds v to DefaultDecimals.
func Round2(v float64) float64 {
	return RoundToDecimals(v, DefaultDecimals)
}

// FormatDecimal formats v the de-DE way: dot thousands separator, comma decimals.
func FormatDecimal(v float64, places int) string {
	return germanFormatter(places, "", "1").Format(minorUnits(v, places))
}

// FormatCurrency formats v with the currency symbol after the amount (de-DE),
// e.g. "1.234,56 €". Unknown codes are printed as-is in place of the symbol.
func FormatCurrency(v float64, currency Currency) string {
	grapheme := string(currency)
	if c := money.GetCurrency(string(currency)); c != nil {
		grapheme = c.Grapheme
	}
	return germanFormatter(DefaultDecimals, grapheme, "1 $").Format(minorUnits(v, DefaultDecimals))
}

func germanFormatter(places int, grapheme, template string) *money.Formatter {
	return money.NewFormatter(places, ",", ".", grapheme, template)
}

func minorUnits(v float64, places int) int64 {
	return decimal.NewFromFloat(SafeNumber(v)).Round(int32(places)).Shift(int32(places)).IntPart()
}

// ToFixedString renders v with a dot and exactly places decimals; "" when v is not finite.
func ToFixedString(v float64, places int32) string {
	if !IsFinite(v) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPercentage renders a percentage with two decimals.
func FormatPercentage(v float64) string {
	return ToFixedString(v, DefaultDecimals)
}

// NormalizeDecimalInput turns the first decimal comma into a dot.
func NormalizeDecimalInput(s string) string {
	return strings.Replace(s, ",", ".", 1)
}

// ParseDecimal parses user input accepting both "12.5" and "12,5".
// The boolean is false for empty or malformed input.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(NormalizeDecimalInput(s))
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// FormatDecimalInput renders v for an input field: two decimals, comma separator.
func FormatDecimalInput(v float64) string {
	return strings.Replace(ToFixedString(v, DefaultDecimals), ".", ",", 1)
}
