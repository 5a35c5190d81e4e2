package importer

import (
	"encoding/json"
	"sort"
	"strings"

	"commodity-pricing/internal/errors"
)

// Field names a product attribute that can be mapped to a sheet column
type Field string

const (
	FieldProductCode      Field = "product_code"
	FieldProductName      Field = "product_name"
	FieldCategory         Field = "category"
	FieldUnitCost         Field = "unit_cost_per_kg"
	FieldUnitPrice        Field = "unit_price_per_kg"
	FieldTargetMarginRate Field = "target_margin_rate"
	FieldMinMarginRate    Field = "min_margin_rate"
)

// ColumnMapping maps product fields to sheet column letters
type ColumnMapping map[Field]string

// DefaultColumnMapping returns the layout of the standard product sheet
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		FieldProductCode:      "C",
		FieldProductName:      "D",
		FieldCategory:         "E",
		FieldUnitCost:         "F",
		FieldUnitPrice:        "G",
		FieldTargetMarginRate: "H",
		FieldMinMarginRate:    "I",
	}
}

// ParseColumnMapping merges a JSON object of field -> column over the defaults.
// An empty string yields the defaults.
func ParseColumnMapping(raw string) (ColumnMapping, error) {
	mapping := DefaultColumnMapping()
	if strings.TrimSpace(raw) == "" {
		return mapping, nil
	}

	var overrides map[string]string
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil || overrides == nil {
		return nil, errors.InvalidParam("column_mapping must be a JSON object")
	}
	return mapping.Merge(overrides)
}

// Merge returns a copy with overrides applied; column letters are upper-cased
// and an empty column unmaps an optional field. Only fields of the default
// layout can be mapped.
func (m ColumnMapping) Merge(overrides map[string]string) (ColumnMapping, error) {
	merged := make(ColumnMapping, len(m))
	for field, column := range m {
		merged[field] = column
	}
	known := DefaultColumnMapping()
	for field, column := range overrides {
		if _, ok := known[Field(field)]; !ok {
			return nil, errors.InvalidParamf("column_mapping: unknown field %q", field).
				WithContext("fields", known.names())
		}
		column = strings.ToUpper(strings.TrimSpace(column))
		if column != "" && !ValidColumn(column) {
			return nil, errors.InvalidParamf("column_mapping: invalid column %q for %s", column, field)
		}
		merged[Field(field)] = column
	}
	if merged[FieldProductCode] == "" || merged[FieldProductName] == "" {
		return nil, errors.InvalidParam("column_mapping: product_code and product_name must be mapped")
	}
	return merged, nil
}

// Column returns the column for a field, empty when unmapped
func (m ColumnMapping) Column(field Field) string {
	return m[field]
}

// Fields lists the mapped fields in a stable order
func (m ColumnMapping) Fields() []Field {
	fields := make([]Field, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func (m ColumnMapping) names() string {
	names := make([]string, 0, len(m))
	for _, f := range m.Fields() {
		names = append(names, string(f))
	}
	return strings.Join(names, ",")
}

// ValidColumn reports whether s is a spreadsheet column such as "A" or "AB"
func ValidColumn(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
