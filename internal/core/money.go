// Package core holds the fund ledger domain model: money, contributions with
// installment payments, withdrawal accounts with usage allocations, and the
// projections computed over them.
//
// This file contains the money type and functions for parsing monetary
// amounts from strings into paise (minor units).
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in paise. It is never negative; operations that would
// produce a negative amount fail instead of clamping after the fact.
type Money struct {
	Paise int64
}

// ParseDecimalToPaise converts a decimal string to paise with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Negative values are
// rejected; zero is allowed (optional amounts validate positivity themselves).
//
// Examples:
//
//	ParseDecimalToPaise("12.34") -> 1234, nil
//	ParseDecimalToPaise("12,34") -> 1234, nil
//	ParseDecimalToPaise("12.345") -> 1234, nil (rounds down)
//	ParseDecimalToPaise("12.346") -> 1235, nil (rounds up)
func ParseDecimalToPaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return 0, ErrInvalidAmount
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	// Convert integer part - check for overflow
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracPaise int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracPaise = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracPaise += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracPaise++
				}
			}
		}
	}
	return iv*100 + fracPaise, nil
}

// Validate reports whether the amount is positive.
func (m Money) Validate() error {
	if m.Paise <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the amount is zero paise.
func (m Money) IsZero() bool {
	return m.Paise == 0
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Paise: m.Paise + other.Paise}
}

// Sub returns m - other, failing if the result would be negative. Callers
// validate before mutating rather than clamping after.
func (m Money) Sub(other Money) (Money, error) {
	if other.Paise > m.Paise {
		return Money{}, ErrInvalidAmount
	}
	return Money{Paise: m.Paise - other.Paise}, nil
}

// LessThan reports whether m is strictly less than other.
func (m Money) LessThan(other Money) bool {
	return m.Paise < other.Paise
}

// Rupees returns the rupee value as a float64 for display purposes.
// Use paise for calculations to avoid floating-point precision issues.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// String formats the amount as a plain decimal, e.g. "1234.50".
func (m Money) String() string {
	return FormatPaise(m.Paise)
}

// MarshalJSON emits the amount as an exact decimal JSON number so API
// clients see rupees without float drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(FormatPaise(m.Paise)), nil
}

// UnmarshalJSON accepts either a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	p, err := ParseDecimalToPaise(s)
	if err != nil {
		return err
	}
	m.Paise = p
	return nil
}

// FormatPaise renders paise as a decimal rupee string. Negative values keep
// their sign; projections like the fund balance may legitimately go negative.
func FormatPaise(paise int64) string {
	neg := paise < 0
	if neg {
		paise = -paise
	}
	s := fmt.Sprintf("%d.%02d", paise/100, paise%100)
	if neg {
		return "-" + s
	}
	return s
}
