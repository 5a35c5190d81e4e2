package simulation

import (
	"testing"

	"github.com/shopspring/decimal"

	"commodity-pricing/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// TestSimulateReferenceScenario covers the 620 yen / 20% / 1000 kg case
func TestSimulateReferenceScenario(t *testing.T) {
	result, err := Simulate(Input{
		UnitCost:         dec("620"),
		TargetMarginRate: dec("0.20"),
		Quantity:         ptr(dec("1000")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RecommendedPrice != 775 {
		t.Errorf("expected recommended price 775, got %d", result.RecommendedPrice)
	}
	if result.ProfitPerUnit != 155 {
		t.Errorf("expected profit per unit 155, got %d", result.ProfitPerUnit)
	}
	if result.ProfitTotal == nil || *result.ProfitTotal != 155000 {
		t.Errorf("expected profit total 155000, got %v", result.ProfitTotal)
	}
	if !result.MarginRate.Equal(dec("0.2")) {
		t.Errorf("expected margin rate 0.2, got %s", result.MarginRate)
	}
	if result.Guard.MinAllowedPrice != 775 {
		t.Errorf("expected guard min price 775, got %d", result.Guard.MinAllowedPrice)
	}
	if result.Guard.BelowMinimum {
		t.Error("guard below-minimum flag must be false")
	}
}

func TestLadderIsFixed(t *testing.T) {
	expected := []struct {
		rate   string
		price  int64
		profit int64
	}{
		{"0.1", 689, 69},
		{"0.15", 729, 109},
		{"0.2", 775, 155},
		{"0.25", 827, 207},
		{"0.3", 886, 266},
	}

	// The ladder must not depend on the requested margin
	for _, target := range []string{"0", "0.05", "0.2", "0.6", "0.99"} {
		result, err := Simulate(Input{UnitCost: dec("620"), TargetMarginRate: dec(target)})
		if err != nil {
			t.Fatalf("target %s: unexpected error: %v", target, err)
		}
		if len(result.Patterns) != 5 {
			t.Fatalf("target %s: expected 5 patterns, got %d", target, len(result.Patterns))
		}
		for i, want := range expected {
			got := result.Patterns[i]
			if !got.MarginRate.Equal(dec(want.rate)) {
				t.Errorf("target %s pattern %d: margin %s, want %s", target, i, got.MarginRate, want.rate)
			}
			if got.PricePerUnit != want.price || got.ProfitPerUnit != want.profit {
				t.Errorf("target %s pattern %d: got %d/%d, want %d/%d",
					target, i, got.PricePerUnit, got.ProfitPerUnit, want.price, want.profit)
			}
		}
	}
}

func TestPriceAtIsExact(t *testing.T) {
	tests := []struct {
		cost   string
		margin string
		price  string
	}{
		{"620", "0.2", "775"},
		{"100", "0", "100"},
		{"90", "0.25", "120"},
		{"0.62", "0.5", "1.24"},
	}

	for _, tt := range tests {
		price, profit := PriceAt(dec(tt.cost), dec(tt.margin))
		if !price.Equal(dec(tt.price)) {
			t.Errorf("PriceAt(%s, %s) price = %s, want %s", tt.cost, tt.margin, price, tt.price)
		}
		if !profit.Equal(dec(tt.price).Sub(dec(tt.cost))) {
			t.Errorf("PriceAt(%s, %s) profit = %s", tt.cost, tt.margin, profit)
		}
	}
}

// TestProfitRoundedFromUnroundedValues: price 200.8 and profit 100.4 round
// independently, so rounded price minus rounded cost differs from the profit.
func TestProfitRoundedFromUnroundedValues(t *testing.T) {
	result, err := Simulate(Input{
		UnitCost:         dec("100.4"),
		TargetMarginRate: dec("0.5"),
		Quantity:         ptr(dec("3")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RecommendedPrice != 201 {
		t.Errorf("expected 201, got %d", result.RecommendedPrice)
	}
	if result.ProfitPerUnit != 100 {
		t.Errorf("expected profit 100, got %d", result.ProfitPerUnit)
	}
	if *result.ProfitTotal != 301 {
		t.Errorf("expected total from unrounded profit (301), got %d", *result.ProfitTotal)
	}
}

func TestProfitTotalAbsentWithoutQuantity(t *testing.T) {
	result, err := Simulate(Input{UnitCost: dec("620"), TargetMarginRate: dec("0.2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProfitTotal != nil {
		t.Errorf("expected no profit total, got %d", *result.ProfitTotal)
	}

	result, err = Simulate(Input{UnitCost: dec("620"), TargetMarginRate: dec("0.2"), Quantity: ptr(decimal.Zero)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProfitTotal == nil || *result.ProfitTotal != 0 {
		t.Errorf("zero quantity must yield a present zero total, got %v", result.ProfitTotal)
	}
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{name: "zero cost", input: Input{UnitCost: dec("0"), TargetMarginRate: dec("0.2")}},
		{name: "negative cost", input: Input{UnitCost: dec("-1"), TargetMarginRate: dec("0.2")}},
		{name: "margin of one", input: Input{UnitCost: dec("620"), TargetMarginRate: dec("1")}},
		{name: "negative margin", input: Input{UnitCost: dec("620"), TargetMarginRate: dec("-0.01")}},
		{name: "negative quantity", input: Input{UnitCost: dec("620"), TargetMarginRate: dec("0.2"), Quantity: ptr(dec("-5"))}},
		{name: "cost beyond int64", input: Input{UnitCost: dec("1e19"), TargetMarginRate: dec("0.2")}},
		{name: "cost with huge exponent", input: Input{UnitCost: dec("1e999999999"), TargetMarginRate: dec("0.2")}},
		{name: "margin with tiny exponent", input: Input{UnitCost: dec("620"), TargetMarginRate: dec("1e-999999999")}},
		{name: "quantity beyond range", input: Input{UnitCost: dec("620"), TargetMarginRate: dec("0.2"), Quantity: ptr(dec("1e16"))}},
		{name: "price overflows", input: Input{UnitCost: dec("999999999999999"), TargetMarginRate: dec("0.99999999999999999999")}},
		{name: "profit total overflows", input: Input{UnitCost: dec("999999999999999"), TargetMarginRate: dec("0.5"), Quantity: ptr(dec("999999999999999"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Simulate(tt.input)
			if err == nil {
				t.Fatalf("expected error, got %+v", result)
			}
			if !errors.IsType(err, errors.TypeInvalidParam) {
				t.Errorf("expected INVALID_PARAM, got %v", err)
			}
		})
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	in := Input{UnitCost: dec("333.333"), TargetMarginRate: dec("0.137"), Quantity: ptr(dec("12.5"))}
	first, _ := Simulate(in)
	for i := 0; i < 10; i++ {
		again, _ := Simulate(in)
		if again.RecommendedPrice != first.RecommendedPrice || *again.ProfitTotal != *first.ProfitTotal {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}
