// Package importer - Product master import from spreadsheet rows
// Rows arrive as raw cells keyed by column letter; the importer normalizes them,
// skips rows it cannot use with a warning, and upserts the rest by product code.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"commodity-pricing/core/normalize"
	"commodity-pricing/internal/errors"
)

const (
	// FirstDataRow is the sheet row of the first data row; row 1 holds headers
	FirstDataRow = 2

	// DefaultUnit is the pricing unit of imported products
	DefaultUnit = "JPY/kg"
)

// Row is one sheet row: raw cell values keyed by column letter
type Row map[string]any

// Product is a normalized product master record
type Product struct {
	Code             string           `json:"product_code"`
	Name             string           `json:"product_name"`
	Category         *string          `json:"category,omitempty"`
	UnitCost         decimal.Decimal  `json:"unit_cost_per_kg"`
	UnitPrice        decimal.Decimal  `json:"unit_price_per_kg"`
	TargetMarginRate *decimal.Decimal `json:"target_margin_rate,omitempty"`
	MinMarginRate    *decimal.Decimal `json:"min_margin_rate,omitempty"`
	Unit             string           `json:"unit"`
}

// ProductSink persists imported products
type ProductSink interface {
	UpsertProduct(ctx context.Context, p Product) error
}

// Warning explains why a row was skipped
type Warning struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Summary is the outcome of an import run
type Summary struct {
	Imported int       `json:"imported"`
	Skipped  int       `json:"skipped"`
	Warnings []Warning `json:"warnings"`
}

// Importer converts sheet rows into products
type Importer struct {
	mapping ColumnMapping
	logger  *zap.Logger
}

// New creates an importer; a nil mapping uses the default layout
func New(mapping ColumnMapping, logger *zap.Logger) *Importer {
	if mapping == nil {
		mapping = DefaultColumnMapping()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{mapping: mapping, logger: logger}
}

// Import normalizes every row and upserts the usable ones into sink.
// A sink failure aborts the run.
func (im *Importer) Import(ctx context.Context, rows []Row, sink ProductSink) (*Summary, error) {
	summary := &Summary{Warnings: []Warning{}}

	for i, row := range rows {
		rowNumber := i + FirstDataRow

		product, warning := im.Normalize(rowNumber, row)
		if warning != nil {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, *warning)
			im.logger.Warn("skipping import row",
				zap.Int("row", warning.Row),
				zap.String("field", warning.Field),
				zap.String("reason", warning.Reason),
			)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sink.UpsertProduct(ctx, *product); err != nil {
			return nil, errors.Storage(fmt.Sprintf("upsert product %s (row %d)", product.Code, rowNumber), err)
		}
		summary.Imported++
	}

	return summary, nil
}

// Normalize converts one row; a non-nil warning means the row is skipped.
func (im *Importer) Normalize(rowNumber int, row Row) (*Product, *Warning) {
	code := cellString(im.cell(row, FieldProductCode))
	name := cellString(im.cell(row, FieldProductName))
	if code == "" || name == "" {
		return nil, &Warning{
			Row:    rowNumber,
			Field:  string(FieldProductCode),
			Reason: "missing product_code or product_name",
		}
	}

	unitCost, costOK := normalize.Currency(im.cell(row, FieldUnitCost))
	unitPrice, priceOK := normalize.Currency(im.cell(row, FieldUnitPrice))
	if !costOK || !priceOK {
		return nil, &Warning{
			Row:    rowNumber,
			Field:  string(FieldUnitCost),
			Reason: "non-numeric",
		}
	}

	product := &Product{
		Code:      code,
		Name:      name,
		UnitCost:  unitCost,
		UnitPrice: unitPrice,
		Unit:      DefaultUnit,
	}
	if category := cellString(im.cell(row, FieldCategory)); category != "" {
		product.Category = &category
	}
	if rate, ok := normalize.Rate(im.cell(row, FieldTargetMarginRate)); ok {
		product.TargetMarginRate = &rate
	}
	if rate, ok := normalize.Rate(im.cell(row, FieldMinMarginRate)); ok {
		product.MinMarginRate = &rate
	}
	return product, nil
}

// cell returns nil for unmapped fields
func (im *Importer) cell(row Row, field Field) any {
	column := im.mapping.Column(field)
	if column == "" {
		return nil
	}
	return row[column]
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
