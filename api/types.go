package api

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"commodity-pricing/core/engine"
	"commodity-pricing/core/importer"
	"commodity-pricing/core/simulation"
	"commodity-pricing/internal/errors"
)

// SimulationRequest is the body of POST /api/price-simulations/calculate.
// Numbers may be JSON numbers or strings. They stay raw through decoding so a
// bad amount is reported as an invalid parameter, not as malformed JSON.
type SimulationRequest struct {
	ProductName      string `json:"product_name" validate:"required,max=200"`
	UnitCostPerKg    any    `json:"unit_cost_per_kg" validate:"required"`
	TargetMarginRate any    `json:"target_margin_rate" validate:"required"`
	QuantityKg       any    `json:"quantity_kg,omitempty"`
}

// Input converts the request into a simulator input
func (r SimulationRequest) Input() (simulation.Input, error) {
	var in simulation.Input
	var err error
	if in.UnitCost, err = amount("unit_cost_per_kg", r.UnitCostPerKg); err != nil {
		return in, err
	}
	if in.TargetMarginRate, err = amount("target_margin_rate", r.TargetMarginRate); err != nil {
		return in, err
	}
	if r.QuantityKg != nil {
		quantity, err := amount("quantity_kg", r.QuantityKg)
		if err != nil {
			return in, err
		}
		in.Quantity = &quantity
	}
	return in, nil
}

// amount parses a JSON number or numeric string exactly
func amount(field string, raw any) (decimal.Decimal, error) {
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return decimal.Zero, errors.InvalidParamf("%s must be a number", field)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.InvalidParamf("%s must be a number", field)
	}
	return d, nil
}

// PricePattern is one ladder rung
type PricePattern struct {
	MarginRate  float64 `json:"margin_rate"`
	PricePerKg  int64   `json:"price_per_kg"`
	ProfitPerKg int64   `json:"profit_per_kg"`
}

// Guard is the minimum-price check
type Guard struct {
	MinAllowedPricePerKg int64   `json:"min_allowed_price_per_kg"`
	IsBelowMin           bool    `json:"is_below_min"`
	WarningMessage       *string `json:"warning_message"`
}

// SimulationResponse is the simulator result on the wire
type SimulationResponse struct {
	RecommendedPricePerKg int64          `json:"recommended_price_per_kg"`
	GrossProfitPerKg      int64          `json:"gross_profit_per_kg"`
	GrossProfitTotal      *int64         `json:"gross_profit_total"`
	MarginRate            float64        `json:"margin_rate"`
	PricePatterns         []PricePattern `json:"price_patterns"`
	Guard                 Guard          `json:"guard"`
}

// NewSimulationResponse maps a simulator result; rates become floats only here
func NewSimulationResponse(r *simulation.Result) SimulationResponse {
	patterns := make([]PricePattern, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		patterns = append(patterns, PricePattern{
			MarginRate:  p.MarginRate.InexactFloat64(),
			PricePerKg:  p.PricePerUnit,
			ProfitPerKg: p.ProfitPerUnit,
		})
	}

	guard := Guard{
		MinAllowedPricePerKg: r.Guard.MinAllowedPrice,
		IsBelowMin:           r.Guard.BelowMinimum,
	}
	if r.Guard.WarningMessage != "" {
		msg := r.Guard.WarningMessage
		guard.WarningMessage = &msg
	}

	return SimulationResponse{
		RecommendedPricePerKg: r.RecommendedPrice,
		GrossProfitPerKg:      r.ProfitPerUnit,
		GrossProfitTotal:      r.ProfitTotal,
		MarginRate:            r.MarginRate.InexactFloat64(),
		PricePatterns:         patterns,
		Guard:                 guard,
	}
}

// BreakEvenResponse is the break-even report on the wire
type BreakEvenResponse struct {
	YearMonth        string  `json:"year_month"`
	FixedCosts       int64   `json:"fixed_costs"`
	CurrentRevenue   int64   `json:"current_revenue"`
	VariableCostRate float64 `json:"variable_cost_rate"`
	GrossMarginRate  float64 `json:"gross_margin_rate"`

	// BreakEvenRevenue is null when the gross margin is not positive
	BreakEvenRevenue *int64  `json:"break_even_revenue"`
	AchievementRate  float64 `json:"achievement_rate"`
	DeltaRevenue     int64   `json:"delta_revenue"`
	Status           string  `json:"status"`
}

// NewBreakEvenResponse maps an engine report
func NewBreakEvenResponse(r *engine.BreakEvenReport) BreakEvenResponse {
	return BreakEvenResponse{
		YearMonth:        r.YearMonth,
		FixedCosts:       r.FixedCosts,
		CurrentRevenue:   r.CurrentRevenue,
		VariableCostRate: r.VariableCostRate.InexactFloat64(),
		GrossMarginRate:  r.GrossMarginRate.InexactFloat64(),
		BreakEvenRevenue: r.BreakEvenRevenue,
		AchievementRate:  r.AchievementRate.InexactFloat64(),
		DeltaRevenue:     r.DeltaRevenue,
		Status:           r.Status.String(),
	}
}

// ImportRequest is the body of POST /api/import/products.
// Rows carry raw cells keyed by column letter; row 1 of the sheet is the header
// and is not sent.
type ImportRequest struct {
	ColumnMapping map[string]string `json:"column_mapping,omitempty"`
	Rows          []importer.Row    `json:"rows" validate:"required"`
}

// ImportResponse is the import outcome
type ImportResponse struct {
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Warnings []importer.Warning `json:"warnings"`
}

// NewImportResponse maps an import summary
func NewImportResponse(s *importer.Summary) ImportResponse {
	warnings := s.Warnings
	if warnings == nil {
		warnings = []importer.Warning{}
	}
	return ImportResponse{Imported: s.Imported, Skipped: s.Skipped, Warnings: warnings}
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
