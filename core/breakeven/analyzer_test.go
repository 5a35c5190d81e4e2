package breakeven

import (
	"testing"

	"github.com/shopspring/decimal"

	"commodity-pricing/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func aggregates(fixed, revenue, variable string) Aggregates {
	return Aggregates{
		FixedCostTotal:    dec(fixed),
		RevenueTotal:      dec(revenue),
		VariableCostTotal: dec(variable),
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name             string
		input            Aggregates
		variableCostRate string
		grossMarginRate  string
		breakEven        *int64
		achievement      string
		delta            int64
		status           Status
	}{
		{
			// 775*1000 + 790*500 revenue, 620*1500 variable cost
			name:             "seeded august month",
			input:            aggregates("38277000", "1170000", "930000"),
			variableCostRate: "0.795",
			grossMarginRate:  "0.205",
			breakEven:        i64(186600375),
			achievement:      "0.006",
			delta:            -185430375,
			status:           StatusDanger,
		},
		{
			name:             "comfortably above break-even",
			input:            aggregates("100000", "1000000", "600000"),
			variableCostRate: "0.6",
			grossMarginRate:  "0.4",
			breakEven:        i64(250000),
			achievement:      "4",
			delta:            750000,
			status:           StatusSafe,
		},
		{
			name:             "exactly at break-even",
			input:            aggregates("400000", "1000000", "600000"),
			variableCostRate: "0.6",
			grossMarginRate:  "0.4",
			breakEven:        i64(1000000),
			achievement:      "1",
			delta:            0,
			status:           StatusSafe,
		},
		{
			name:             "exactly eighty percent",
			input:            aggregates("500000", "1000000", "600000"),
			variableCostRate: "0.6",
			grossMarginRate:  "0.4",
			breakEven:        i64(1250000),
			achievement:      "0.8",
			delta:            -250000,
			status:           StatusWarning,
		},
		{
			name:             "no revenue",
			input:            aggregates("5000", "0", "0"),
			variableCostRate: "0",
			grossMarginRate:  "0",
			breakEven:        nil,
			achievement:      "0",
			delta:            -5000,
			status:           StatusDanger,
		},
		{
			name:             "variable cost exceeds revenue",
			input:            aggregates("5000", "100", "150"),
			variableCostRate: "1.5",
			grossMarginRate:  "0",
			breakEven:        nil,
			achievement:      "0",
			delta:            -5000,
			status:           StatusDanger,
		},
		{
			name:             "variable cost equals revenue",
			input:            aggregates("1234.5", "800", "800"),
			variableCostRate: "1",
			grossMarginRate:  "0",
			breakEven:        nil,
			achievement:      "0",
			delta:            -1235,
			status:           StatusDanger,
		},
		{
			name:             "no fixed costs",
			input:            aggregates("0", "1000", "600"),
			variableCostRate: "0.6",
			grossMarginRate:  "0.4",
			breakEven:        i64(0),
			achievement:      "0",
			delta:            1000,
			status:           StatusDanger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Analyze(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !result.VariableCostRate.Equal(dec(tt.variableCostRate)) {
				t.Errorf("variable cost rate = %s, want %s", result.VariableCostRate, tt.variableCostRate)
			}
			if !result.GrossMarginRate.Equal(dec(tt.grossMarginRate)) {
				t.Errorf("gross margin rate = %s, want %s", result.GrossMarginRate, tt.grossMarginRate)
			}
			switch {
			case tt.breakEven == nil && result.BreakEvenRevenue != nil:
				t.Errorf("expected undefined break-even, got %d", *result.BreakEvenRevenue)
			case tt.breakEven != nil && result.BreakEvenRevenue == nil:
				t.Errorf("expected break-even %d, got undefined", *tt.breakEven)
			case tt.breakEven != nil && *tt.breakEven != *result.BreakEvenRevenue:
				t.Errorf("break-even = %d, want %d", *result.BreakEvenRevenue, *tt.breakEven)
			}
			if !result.AchievementRate.Equal(dec(tt.achievement)) {
				t.Errorf("achievement = %s, want %s", result.AchievementRate, tt.achievement)
			}
			if result.DeltaRevenue != tt.delta {
				t.Errorf("delta = %d, want %d", result.DeltaRevenue, tt.delta)
			}
			if result.Status != tt.status {
				t.Errorf("status = %s, want %s", result.Status, tt.status)
			}
		})
	}
}

func TestAnalyzeEchoesRoundedTotals(t *testing.T) {
	result, err := Analyze(aggregates("38277000.4", "1169999.5", "930000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FixedCosts != 38277000 {
		t.Errorf("fixed costs = %d", result.FixedCosts)
	}
	if result.CurrentRevenue != 1170000 {
		t.Errorf("current revenue = %d", result.CurrentRevenue)
	}
}

func TestAnalyzeRejectsNegativeAggregates(t *testing.T) {
	inputs := []Aggregates{
		aggregates("-1", "0", "0"),
		aggregates("0", "-1", "0"),
		aggregates("0", "0", "-1"),
	}
	for _, in := range inputs {
		if _, err := Analyze(in); !errors.IsType(err, errors.TypeInvalidParam) {
			t.Errorf("Analyze(%+v) error = %v, want INVALID_PARAM", in, err)
		}
	}
}

func TestClassifyStatusBoundaries(t *testing.T) {
	tests := []struct {
		achievement string
		expected    Status
	}{
		{"1.0", StatusSafe},
		{"1.5", StatusSafe},
		{"0.99999", StatusWarning},
		{"0.8", StatusWarning},
		{"0.7999", StatusDanger},
		{"0", StatusDanger},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(dec(tt.achievement)); got != tt.expected {
			t.Errorf("ClassifyStatus(%s) = %s, want %s", tt.achievement, got, tt.expected)
		}
	}
}

func i64(v int64) *int64 {
	return &v
}

func TestAnalyzeRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		in   Aggregates
	}{
		{name: "fixed cost beyond int64", in: aggregates("1e19", "0", "0")},
		{name: "huge exponent", in: aggregates("0", "1e999999999", "0")},
		{name: "tiny exponent", in: aggregates("0", "1", "1e-999999999")},
		{name: "break-even overflows", in: aggregates("999999999999999", "100000000000000", "99999999999999.99999")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Analyze(tt.in)
			if !errors.IsType(err, errors.TypeInvalidParam) {
				t.Fatalf("expected INVALID_PARAM, got %v (result %+v)", err, result)
			}
		})
	}
}
