// Package simulation - Price simulation engine
// Derives a recommended sale price and a fixed comparison ladder from a unit cost
// and a target gross margin. All arithmetic is exact decimal; rounding happens once,
// at the output boundary.
package simulation

import (
	"github.com/shopspring/decimal"

	"commodity-pricing/core/rounding"
	"commodity-pricing/internal/errors"
)

// LadderRates are the margin rates of the comparison ladder, in output order.
// They are independent of the caller's target margin.
var LadderRates = []decimal.Decimal{
	decimal.RequireFromString("0.10"),
	decimal.RequireFromString("0.15"),
	decimal.RequireFromString("0.20"),
	decimal.RequireFromString("0.25"),
	decimal.RequireFromString("0.30"),
}

// Input is a single price simulation request
type Input struct {
	// UnitCost is the cost per unit (yen per kg); must be > 0
	UnitCost decimal.Decimal

	// TargetMarginRate is the desired gross margin as a fraction in [0, 1)
	TargetMarginRate decimal.Decimal

	// Quantity is the optional sold quantity; must be >= 0 when present
	Quantity *decimal.Decimal
}

// Pattern is one rung of the comparison ladder
type Pattern struct {
	MarginRate    decimal.Decimal `json:"margin_rate"`
	PricePerUnit  int64           `json:"price_per_unit"`
	ProfitPerUnit int64           `json:"profit_per_unit"`
}

// Guard carries the minimum-price check.
// BelowMinimum is always false: no floor price is compared yet.
type Guard struct {
	MinAllowedPrice int64  `json:"min_allowed_price"`
	BelowMinimum    bool   `json:"below_minimum"`
	WarningMessage  string `json:"warning_message,omitempty"`
}

// Result is the rounded outcome of a simulation
type Result struct {
	RecommendedPrice int64           `json:"recommended_price"`
	ProfitPerUnit    int64           `json:"profit_per_unit"`
	ProfitTotal      *int64          `json:"profit_total,omitempty"`
	MarginRate       decimal.Decimal `json:"margin_rate"`
	Patterns         []Pattern       `json:"patterns"`
	Guard            Guard           `json:"guard"`
}

// Validate checks the input preconditions
func (in Input) Validate() error {
	// range first: comparisons expand the operands
	if !rounding.InRange(in.UnitCost) {
		return outOfRange("unit_cost_per_kg")
	}
	if !rounding.InRange(in.TargetMarginRate) {
		return outOfRange("target_margin_rate")
	}
	if in.Quantity != nil && !rounding.InRange(*in.Quantity) {
		return outOfRange("quantity_kg")
	}
	if !in.UnitCost.IsPositive() {
		return errors.InvalidParam("unit_cost_per_kg must be greater than 0").
			WithContext("unit_cost", in.UnitCost.String())
	}
	if in.TargetMarginRate.IsNegative() || in.TargetMarginRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.InvalidParam("target_margin_rate must be at least 0 and less than 1").
			WithContext("target_margin_rate", in.TargetMarginRate.String())
	}
	if in.Quantity != nil && in.Quantity.IsNegative() {
		return errors.InvalidParam("quantity_kg must be greater than or equal to 0").
			WithContext("quantity", in.Quantity.String())
	}
	return nil
}

// Simulate computes the recommended price, profits and the margin ladder.
func Simulate(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	price, profit := PriceAt(in.UnitCost, in.TargetMarginRate)
	if !rounding.FitsCurrency(price) {
		return nil, errors.InvalidParam("recommended price is out of range").
			WithContext("unit_cost", in.UnitCost.String()).
			WithContext("target_margin_rate", in.TargetMarginRate.String())
	}
	recommended := rounding.Currency(price)

	result := &Result{
		RecommendedPrice: recommended,
		ProfitPerUnit:    rounding.Currency(profit),
		MarginRate:       rounding.Rate(in.TargetMarginRate),
		Patterns:         Ladder(in.UnitCost),
		Guard: Guard{
			MinAllowedPrice: recommended,
			BelowMinimum:    false,
		},
	}

	if in.Quantity != nil {
		totalProfit := profit.Mul(*in.Quantity)
		if !rounding.FitsCurrency(totalProfit) {
			return nil, errors.InvalidParam("gross profit total is out of range").
				WithContext("quantity", in.Quantity.String())
		}
		total := rounding.Currency(totalProfit)
		result.ProfitTotal = &total
	}

	return result, nil
}

// PriceAt returns the unrounded price and per-unit profit for a margin rate:
// price = cost / (1 - margin), profit = price - cost.
// margin must be below 1.
func PriceAt(unitCost, marginRate decimal.Decimal) (price, profit decimal.Decimal) {
	price = rounding.Div(unitCost, decimal.NewFromInt(1).Sub(marginRate))
	profit = price.Sub(unitCost)
	return price, profit
}

// Ladder computes the fixed comparison ladder for a unit cost.
func Ladder(unitCost decimal.Decimal) []Pattern {
	patterns := make([]Pattern, 0, len(LadderRates))
	for _, rate := range LadderRates {
		price, profit := PriceAt(unitCost, rate)
		patterns = append(patterns, Pattern{
			MarginRate:    rounding.Rate(rate),
			PricePerUnit:  rounding.Currency(price),
			ProfitPerUnit: rounding.Currency(profit),
		})
	}
	return patterns
}

// outOfRange must not format the value: it may expand to billions of digits
func outOfRange(field string) error {
	return errors.InvalidParamf("%s is out of range", field).
		WithContext("max_integer_digits", rounding.MaxInputDigits).
		WithContext("max_decimal_places", rounding.MaxInputPlaces)
}
