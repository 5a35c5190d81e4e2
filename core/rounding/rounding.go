// Package rounding - Currency and rate rounding primitives
// Every monetary output of the engine passes through this package exactly once.
// NEVER round a float64 approximation: convert to decimal first.
package rounding

import (
	"github.com/shopspring/decimal"
)

const (
	// RatePlaces is the canonical number of decimal places for rates
	RatePlaces int32 = 3

	// CurrencyPlaces is the precision of a whole yen
	CurrencyPlaces int32 = 0

	// DivisionPlaces is the fractional precision kept by exact divisions
	DivisionPlaces int32 = 20

	// MaxInputDigits bounds the integer digits of an accepted amount
	MaxInputDigits = 15

	// MaxInputPlaces bounds the fractional digits of an accepted amount
	MaxInputPlaces = 20

	// maxCurrencyDigits keeps every rounded currency value inside int64
	maxCurrencyDigits = 18
)

// InRange reports whether value has at most MaxInputDigits integer digits and
// MaxInputPlaces fractional digits. It inspects the representation only, so
// values such as 1e999999999 are rejected without being expanded.
func InRange(value decimal.Decimal) bool {
	exp := int64(value.Exponent())
	if exp < -MaxInputPlaces || exp > MaxInputDigits {
		return false
	}
	if value.IsZero() {
		return true
	}
	return int64(value.NumDigits())+exp <= MaxInputDigits
}

// FitsCurrency reports whether value rounds to a whole currency amount that
// Currency can return without overflow.
func FitsCurrency(value decimal.Decimal) bool {
	if value.IsZero() {
		return true
	}
	return int64(value.NumDigits())+int64(value.Exponent()) <= maxCurrencyDigits
}

// Currency rounds half-up (ties away from zero) to the nearest whole currency unit.
// Amounts outside FitsCurrency overflow; callers check first.
func Currency(value decimal.Decimal) int64 {
	return value.Round(CurrencyPlaces).IntPart()
}

// Rate rounds half-up to RatePlaces decimal places.
func Rate(value decimal.Decimal) decimal.Decimal {
	return Scale(value, RatePlaces)
}

// Scale rounds half-up to the given number of decimal places.
func Scale(value decimal.Decimal, places int32) decimal.Decimal {
	return value.Round(places)
}

// Div divides numerator by denominator keeping DivisionPlaces fractional digits.
// Callers must guard against a zero denominator.
func Div(numerator, denominator decimal.Decimal) decimal.Decimal {
	return numerator.DivRound(denominator, DivisionPlaces)
}

// FromFloat converts a float through its shortest decimal representation,
// so 0.1 becomes exactly 0.1 rather than its binary approximation.
func FromFloat(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}
