package importer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/shopspring/decimal"

	"commodity-pricing/internal/errors"
)

type memorySink struct {
	products map[string]Product
	err      error
}

func (m *memorySink) UpsertProduct(ctx context.Context, p Product) error {
	if m.err != nil {
		return m.err
	}
	if m.products == nil {
		m.products = make(map[string]Product)
	}
	m.products[p.Code] = p
	return nil
}

// TestImportSkipsUnusableRows mirrors a sheet with one good and one bad row
func TestImportSkipsUnusableRows(t *testing.T) {
	rows := []Row{
		{"C": "SKU-002", "D": "New product", "F": 0.620, "G": 0.775, "H": 0.2},
		{"C": "SKU-003", "D": "Broken", "F": "not-a-number"},
	}
	sink := &memorySink{}

	summary, err := New(nil, nil).Import(context.Background(), rows, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Imported != 1 || summary.Skipped != 1 {
		t.Fatalf("expected 1 imported / 1 skipped, got %d / %d", summary.Imported, summary.Skipped)
	}
	if len(summary.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(summary.Warnings))
	}
	w := summary.Warnings[0]
	if w.Row != 3 || w.Field != "unit_cost_per_kg" || w.Reason != "non-numeric" {
		t.Errorf("unexpected warning %+v", w)
	}

	p, ok := sink.products["SKU-002"]
	if !ok {
		t.Fatal("SKU-002 not upserted")
	}
	if !p.UnitCost.Equal(decimal.NewFromInt(620)) || !p.UnitPrice.Equal(decimal.NewFromInt(775)) {
		t.Errorf("unexpected prices %s / %s", p.UnitCost, p.UnitPrice)
	}
	if p.TargetMarginRate == nil || !p.TargetMarginRate.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("unexpected target margin %v", p.TargetMarginRate)
	}
	if p.MinMarginRate != nil {
		t.Errorf("expected no min margin, got %s", p.MinMarginRate)
	}
	if p.Category != nil {
		t.Errorf("expected no category, got %q", *p.Category)
	}
	if p.Unit != DefaultUnit {
		t.Errorf("unexpected unit %q", p.Unit)
	}
}

func TestImportMissingIdentity(t *testing.T) {
	rows := []Row{
		{"D": "No code", "F": 1, "G": 2},
		{"C": "SKU-9", "D": "   ", "F": 1, "G": 2},
	}
	summary, err := New(nil, nil).Import(context.Background(), rows, &memorySink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", summary.Skipped)
	}
	for i, w := range summary.Warnings {
		if w.Row != i+FirstDataRow || w.Field != "product_code" {
			t.Errorf("unexpected warning %+v", w)
		}
	}
}

func TestImportWithCustomMapping(t *testing.T) {
	mapping, err := ParseColumnMapping(`{"product_code": "a", "product_name": "b", "unit_cost_per_kg": "c", "unit_price_per_kg": "d", "target_margin_rate": "e", "category": "f"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := []Row{{"A": 1001.0, "B": " Apples ", "C": "0.3", "D": "0.4", "E": "25", "F": "Fruit", "I": "10"}}
	sink := &memorySink{}
	summary, err := New(mapping, nil).Import(context.Background(), rows, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected 1 imported, got %+v", summary)
	}

	p := sink.products["1001"]
	if p.Name != "Apples" {
		t.Errorf("name not trimmed: %q", p.Name)
	}
	if p.Category == nil || *p.Category != "Fruit" {
		t.Errorf("unexpected category %v", p.Category)
	}
	if !p.TargetMarginRate.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("percent margin not normalized: %s", p.TargetMarginRate)
	}
	if p.MinMarginRate == nil || !p.MinMarginRate.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("default min margin column not used: %v", p.MinMarginRate)
	}
}

func TestImportAbortsOnSinkFailure(t *testing.T) {
	rows := []Row{{"C": "SKU-1", "D": "x", "F": 1, "G": 2}}
	_, err := New(nil, nil).Import(context.Background(), rows, &memorySink{err: stderrors.New("disk full")})
	if !errors.IsType(err, errors.TypeStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestColumnMappingFields(t *testing.T) {
	got := DefaultColumnMapping().Fields()
	want := []Field{
		FieldCategory, FieldMinMarginRate, FieldProductCode, FieldProductName,
		FieldTargetMarginRate, FieldUnitCost, FieldUnitPrice,
	}
	if len(got) != len(want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMergeRejectsUnknownField(t *testing.T) {
	_, err := DefaultColumnMapping().Merge(map[string]string{"colour": "Z"})
	if !errors.IsType(err, errors.TypeInvalidParam) {
		t.Fatalf("expected INVALID_PARAM, got %v", err)
	}
	e, _ := errors.As(err)
	if e.Context["fields"] != "category,min_margin_rate,product_code,product_name,target_margin_rate,unit_cost_per_kg,unit_price_per_kg" {
		t.Errorf("unexpected fields context %v", e.Context["fields"])
	}
}

func TestParseColumnMapping(t *testing.T) {
	mapping, err := ParseColumnMapping("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping.Column(FieldUnitCost) != "F" {
		t.Errorf("expected default F, got %s", mapping.Column(FieldUnitCost))
	}

	mapping, err = ParseColumnMapping(`{"min_margin_rate": ""}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping.Column(FieldMinMarginRate) != "" {
		t.Error("expected min margin to be unmapped")
	}

	for _, raw := range []string{`[1,2]`, `"C"`, `null`, `{"product_code": "C1"}`, `{"product_name": ""}`, `{"unit_cost": "F"}`} {
		if _, err := ParseColumnMapping(raw); !errors.IsType(err, errors.TypeInvalidParam) {
			t.Errorf("ParseColumnMapping(%s) error = %v, want INVALID_PARAM", raw, err)
		}
	}
}
