package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"commodity-pricing/core/importer"
	"commodity-pricing/core/period"
)

// SeedMonth is the month the demo sales are booked in
const SeedMonth = "2025-08"

// Seed loads a small demo data set: fixed costs for July and August 2025, one
// product and two August sales lines.
func Seed(ctx context.Context, store *Store) error {
	july, _ := period.ParseYearMonth("2025-07")
	august, _ := period.ParseYearMonth(SeedMonth)
	category := "青果"
	targetMargin := decimal.RequireFromString("0.2")

	product := importer.Product{
		Code:             "SKU-001",
		Name:             "テスト商品",
		Category:         &category,
		UnitCost:         decimal.NewFromInt(620),
		UnitPrice:        decimal.NewFromInt(775),
		TargetMarginRate: &targetMargin,
		Unit:             importer.DefaultUnit,
	}

	return store.WithTx(ctx, func(tx *Store) error {
		if err := tx.AddFixedCost(ctx, july, decimal.NewFromInt(34_222_000), ""); err != nil {
			return err
		}
		if err := tx.AddFixedCost(ctx, august, decimal.NewFromInt(38_277_000), ""); err != nil {
			return err
		}
		if err := tx.UpsertProduct(ctx, product); err != nil {
			return err
		}
		productID, err := tx.ProductID(ctx, product.Code)
		if err != nil {
			return err
		}

		sales := []Sale{
			seedSale(productID, time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), 1000, 775, 620),
			seedSale(productID, time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC), 500, 790, 620),
		}
		for _, sale := range sales {
			if err := tx.AddSale(ctx, sale); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedSale(productID string, date time.Time, qty, price, cost int64) Sale {
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(price)
	c := decimal.NewFromInt(cost)
	return Sale{ProductID: &productID, SaleDate: date, Quantity: &q, UnitPrice: &p, UnitCost: &c}
}
