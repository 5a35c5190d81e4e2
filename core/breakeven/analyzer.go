// Package breakeven - Break-even analysis engine
// Turns a month's fixed-cost total and sales aggregates into a break-even revenue,
// an achievement rate and a status. Every division is guarded by an explicit branch.
package breakeven

import (
	"github.com/shopspring/decimal"

	"commodity-pricing/core/rounding"
	"commodity-pricing/internal/errors"
)

// Aggregates are the period totals supplied by the storage collaborator
type Aggregates struct {
	// FixedCostTotal is the sum of fixed costs booked for the month
	FixedCostTotal decimal.Decimal

	// RevenueTotal is the sum of quantity * unit price over the period
	RevenueTotal decimal.Decimal

	// VariableCostTotal is the sum of quantity * unit cost over the period
	VariableCostTotal decimal.Decimal
}

// Result is the rounded break-even analysis
type Result struct {
	FixedCosts       int64           `json:"fixed_costs"`
	CurrentRevenue   int64           `json:"current_revenue"`
	VariableCostRate decimal.Decimal `json:"variable_cost_rate"`
	GrossMarginRate  decimal.Decimal `json:"gross_margin_rate"`

	// BreakEvenRevenue is nil when the gross margin is not positive
	BreakEvenRevenue *int64 `json:"break_even_revenue"`

	AchievementRate decimal.Decimal `json:"achievement_rate"`
	DeltaRevenue    int64           `json:"delta_revenue"`
	Status          Status          `json:"status"`
}

// Validate rejects negative or out-of-range aggregates
func (a Aggregates) Validate() error {
	totals := []struct {
		name  string
		value decimal.Decimal
	}{
		{"fixed cost total", a.FixedCostTotal},
		{"revenue total", a.RevenueTotal},
		{"variable cost total", a.VariableCostTotal},
	}
	for _, total := range totals {
		if !rounding.InRange(total.value) {
			return errors.InvalidParamf("%s is out of range", total.name)
		}
	}
	if a.FixedCostTotal.IsNegative() {
		return errors.InvalidParam("fixed cost total must not be negative")
	}
	if a.RevenueTotal.IsNegative() {
		return errors.InvalidParam("revenue total must not be negative")
	}
	if a.VariableCostTotal.IsNegative() {
		return errors.InvalidParam("variable cost total must not be negative")
	}
	return nil
}

// Analyze computes the break-even figures for one period.
func Analyze(a Aggregates) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)

	// zero revenue: both rates are 0 and break-even is undefined. Reading the
	// margin as 1 instead would report break-even equal to the fixed costs.
	variableCostRatio := decimal.Zero
	marginRaw := decimal.Zero
	if a.RevenueTotal.IsPositive() {
		variableCostRatio = rounding.Div(a.VariableCostTotal, a.RevenueTotal)
		marginRaw = one.Sub(variableCostRatio)
	}

	result := &Result{
		FixedCosts:       rounding.Currency(a.FixedCostTotal),
		CurrentRevenue:   rounding.Currency(a.RevenueTotal),
		VariableCostRate: rounding.Rate(variableCostRatio),
		GrossMarginRate:  decimal.Zero,
		AchievementRate:  decimal.Zero,
	}
	if marginRaw.IsPositive() {
		result.GrossMarginRate = rounding.Rate(marginRaw)
	}

	achievement := decimal.Zero
	if !marginRaw.IsPositive() {
		result.DeltaRevenue = rounding.Currency(a.FixedCostTotal.Neg())
	} else {
		// divide by the raw margin; the rounded one would compound error
		breakEven := rounding.Div(a.FixedCostTotal, marginRaw)
		if !rounding.FitsCurrency(breakEven) {
			return nil, errors.InvalidParam("break-even revenue is out of range").
				WithContext("gross_margin", marginRaw.String())
		}
		if breakEven.IsPositive() {
			achievement = rounding.Div(a.RevenueTotal, breakEven)
		}
		rounded := rounding.Currency(breakEven)
		result.BreakEvenRevenue = &rounded
		result.DeltaRevenue = rounding.Currency(a.RevenueTotal.Sub(breakEven))
	}

	result.Status = ClassifyStatus(achievement)
	if achievement.IsPositive() {
		result.AchievementRate = rounding.Rate(achievement)
	}

	return result, nil
}
