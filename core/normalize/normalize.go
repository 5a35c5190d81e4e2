// Package normalize - Cleans externally sourced numeric cells
// Spreadsheet rates may be fractions (0.2) or percentages (20); currency cells
// are expressed in thousands of yen. A value that cannot be normalized is
// reported as missing, never as an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"commodity-pricing/core/rounding"
)

const (
	// CurrencyPlaces is the stored precision of a normalized currency value
	CurrencyPlaces int32 = 3
)

var (
	// CurrencyScale converts source units (thousand yen) to yen
	CurrencyScale = decimal.NewFromInt(1000)

	percentDivisor = decimal.NewFromInt(100)
	one            = decimal.NewFromInt(1)
)

// Rate normalizes a raw rate cell. ok is false when the cell is absent,
// unparsable or negative.
func Rate(raw any) (decimal.Decimal, bool) {
	value, ok := Parse(raw)
	if !ok {
		return decimal.Zero, false
	}
	if value.GreaterThan(one) {
		value = value.Div(percentDivisor)
	}
	if value.IsNegative() {
		return decimal.Zero, false
	}
	return rounding.Rate(value), true
}

// Currency normalizes a raw currency cell into yen with three decimal places.
func Currency(raw any) (decimal.Decimal, bool) {
	value, ok := Parse(raw)
	if !ok {
		return decimal.Zero, false
	}
	return rounding.Scale(value.Mul(CurrencyScale), CurrencyPlaces), true
}

// Parse converts a raw cell to an exact decimal.
// Floats go through their shortest decimal representation. Values outside
// rounding.InRange are treated as missing.
func Parse(raw any) (decimal.Decimal, bool) {
	value, ok := parse(raw)
	if !ok || !rounding.InRange(value) {
		return decimal.Zero, false
	}
	return value, true
}

func parse(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return rounding.FromFloat(v), true
	case float32:
		// NaN and Inf fail to parse
		return parseString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromUint64(uint64(v)), true
	case uint32:
		return decimal.NewFromUint64(uint64(v)), true
	case uint64:
		return decimal.NewFromUint64(v), true
	default:
		return decimal.Zero, false
	}
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
