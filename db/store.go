package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"commodity-pricing/core/importer"
	"commodity-pricing/core/period"
	"commodity-pricing/core/simulation"
	"commodity-pricing/internal/errors"
	"commodity-pricing/internal/logging"
)

// DefaultFixedCostCategory labels fixed costs recorded without a category
const DefaultFixedCostCategory = "固定費"

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Sale is one sales line
type Sale struct {
	ProductID *string
	SaleDate  time.Time
	Quantity  *decimal.Decimal
	UnitPrice *decimal.Decimal
	UnitCost  *decimal.Decimal
}

// SimulationRecord is a persisted price simulation
type SimulationRecord struct {
	ProductID        *string
	InputCost        decimal.Decimal
	TargetMarginRate decimal.Decimal
	CalculatedPrice  decimal.Decimal
	SelectedPrice    *decimal.Decimal
	Quantity         *decimal.Decimal
	ProfitTotal      *decimal.Decimal
	Parameters       *string
}

// Invalidator drops cached aggregates after fixed costs or sales change
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Store reads and writes pricing data
type Store struct {
	db          *DB
	q           querier
	logger      *zap.Logger
	invalidator Invalidator

	// set on transaction-bound stores; invalidation waits for commit
	inTx    bool
	changed bool
}

// NewStore creates a store over an open database
func NewStore(db *DB, logger *zap.Logger) *Store {
	return &Store{db: db, q: db.DB, logger: logging.OrNop(logger)}
}

// SetInvalidator registers the cache told about fixed cost and sales writes
func (s *Store) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// WithTx runs fn against a store bound to one transaction, committing when fn succeeds
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin tx", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	txStore := &Store{db: s.db, q: tx, logger: s.logger, invalidator: s.invalidator, inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Storage("commit tx", err)
	}
	if txStore.changed {
		s.invalidate(ctx)
	}
	return nil
}

// FixedCostTotal sums the fixed costs booked for month; no rows sum to zero
func (s *Store) FixedCostTotal(ctx context.Context, month period.Month) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT CAST(amount AS TEXT) FROM fixed_costs WHERE year_month = $1`,
		month.Start.Format(period.DateLayout),
	)
	if err != nil {
		return decimal.Zero, s.fail("query fixed costs", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount sql.NullString
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, s.fail("scan fixed cost", err)
		}
		v, err := parseNumeric(amount)
		if err != nil {
			return decimal.Zero, s.fail("parse fixed cost", err)
		}
		total = total.Add(v)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, s.fail("iterate fixed costs", err)
	}
	return total, nil
}

// SalesSummary sums revenue and variable cost of sales in [start, end).
// Lines missing a quantity or price contribute nothing to that sum.
func (s *Store) SalesSummary(ctx context.Context, start, end time.Time) (revenue, variableCost decimal.Decimal, err error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT CAST(quantity_kg AS TEXT), CAST(unit_price_per_kg AS TEXT), CAST(unit_cost_per_kg AS TEXT)
		   FROM sales_data
		  WHERE sale_date >= $1 AND sale_date < $2`,
		start.Format(period.DateLayout),
		end.Format(period.DateLayout),
	)
	if err != nil {
		return decimal.Zero, decimal.Zero, s.fail("query sales", err)
	}
	defer rows.Close()

	revenue, variableCost = decimal.Zero, decimal.Zero
	for rows.Next() {
		var qty, price, cost sql.NullString
		if err := rows.Scan(&qty, &price, &cost); err != nil {
			return decimal.Zero, decimal.Zero, s.fail("scan sale", err)
		}
		if !qty.Valid {
			continue
		}
		q, err := parseNumeric(qty)
		if err != nil {
			return decimal.Zero, decimal.Zero, s.fail("parse sale quantity", err)
		}
		if price.Valid {
			p, err := parseNumeric(price)
			if err != nil {
				return decimal.Zero, decimal.Zero, s.fail("parse sale price", err)
			}
			revenue = revenue.Add(q.Mul(p))
		}
		if cost.Valid {
			c, err := parseNumeric(cost)
			if err != nil {
				return decimal.Zero, decimal.Zero, s.fail("parse sale cost", err)
			}
			variableCost = variableCost.Add(q.Mul(c))
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, s.fail("iterate sales", err)
	}
	return revenue, variableCost, nil
}

// UpsertProduct inserts a product or updates the one with the same code
func (s *Store) UpsertProduct(ctx context.Context, p importer.Product) error {
	unit := p.Unit
	if unit == "" {
		unit = importer.DefaultUnit
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO products (id, product_code, product_name, category, unit_cost_per_kg,
		                       unit_price_per_kg, target_margin_rate, min_margin_rate, unit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (product_code) DO UPDATE SET
		     product_name       = excluded.product_name,
		     category           = excluded.category,
		     unit_cost_per_kg   = excluded.unit_cost_per_kg,
		     unit_price_per_kg  = excluded.unit_price_per_kg,
		     target_margin_rate = excluded.target_margin_rate,
		     min_margin_rate    = excluded.min_margin_rate,
		     unit               = excluded.unit,
		     updated_at         = CURRENT_TIMESTAMP`,
		uuid.NewString(), p.Code, p.Name, p.Category, p.UnitCost, p.UnitPrice,
		p.TargetMarginRate, p.MinMarginRate, unit,
	)
	if err != nil {
		return s.fail("upsert product", err)
	}
	return nil
}

// ProductID returns the id of the product with code
func (s *Store) ProductID(ctx context.Context, code string) (string, error) {
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT id FROM products WHERE product_code = $1`, code).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", errors.NotFound("product", code)
	}
	if err != nil {
		return "", s.fail("query product", err)
	}
	return id, nil
}

// Product loads the product with code
func (s *Store) Product(ctx context.Context, code string) (*importer.Product, error) {
	var (
		p                       importer.Product
		category                sql.NullString
		cost, price             sql.NullString
		targetMargin, minMargin sql.NullString
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT product_code, product_name, category,
		        CAST(unit_cost_per_kg AS TEXT), CAST(unit_price_per_kg AS TEXT),
		        CAST(target_margin_rate AS TEXT), CAST(min_margin_rate AS TEXT), unit
		   FROM products WHERE product_code = $1`, code,
	).Scan(&p.Code, &p.Name, &category, &cost, &price, &targetMargin, &minMargin, &p.Unit)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("product", code)
	}
	if err != nil {
		return nil, s.fail("query product", err)
	}

	if category.Valid {
		p.Category = &category.String
	}
	if p.UnitCost, err = parseNumeric(cost); err != nil {
		return nil, s.fail("parse unit cost", err)
	}
	if p.UnitPrice, err = parseNumeric(price); err != nil {
		return nil, s.fail("parse unit price", err)
	}
	if p.TargetMarginRate, err = parseOptional(targetMargin); err != nil {
		return nil, s.fail("parse target margin", err)
	}
	if p.MinMarginRate, err = parseOptional(minMargin); err != nil {
		return nil, s.fail("parse min margin", err)
	}
	return &p, nil
}

// AddFixedCost books a fixed cost against month
func (s *Store) AddFixedCost(ctx context.Context, month period.Month, amount decimal.Decimal, category string) error {
	if category == "" {
		category = DefaultFixedCostCategory
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO fixed_costs (id, year_month, amount, category) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), month.Start.Format(period.DateLayout), amount, category,
	)
	if err != nil {
		return s.fail("insert fixed cost", err)
	}
	s.aggregatesChanged(ctx)
	return nil
}

// AddSale records a sales line
func (s *Store) AddSale(ctx context.Context, sale Sale) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO sales_data (id, product_id, sale_date, quantity_kg, unit_price_per_kg, unit_cost_per_kg)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), sale.ProductID, sale.SaleDate.Format(period.DateLayout),
		sale.Quantity, sale.UnitPrice, sale.UnitCost,
	)
	if err != nil {
		return s.fail("insert sale", err)
	}
	s.aggregatesChanged(ctx)
	return nil
}

// RecordSimulation stores a calculated simulation and returns its id
func (s *Store) RecordSimulation(ctx context.Context, r SimulationRecord) (string, error) {
	id := uuid.NewString()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO price_simulations (id, product_id, input_cost_per_kg, target_margin_rate,
		                                calculated_price_per_kg, selected_price_per_kg, quantity_kg,
		                                gross_profit_total, parameters)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, r.ProductID, r.InputCost, r.TargetMarginRate, r.CalculatedPrice,
		r.SelectedPrice, r.Quantity, r.ProfitTotal, r.Parameters,
	)
	if err != nil {
		return "", s.fail("insert simulation", err)
	}
	return id, nil
}

// SaveSimulation records a calculated simulation with its ladder as parameters
func (s *Store) SaveSimulation(ctx context.Context, in simulation.Input, res *simulation.Result) (string, error) {
	params, err := json.Marshal(map[string]any{"price_patterns": res.Patterns})
	if err != nil {
		return "", errors.Internal("encode simulation parameters", err)
	}
	parameters := string(params)

	record := SimulationRecord{
		InputCost:        in.UnitCost,
		TargetMarginRate: in.TargetMarginRate,
		CalculatedPrice:  decimal.NewFromInt(res.RecommendedPrice),
		Quantity:         in.Quantity,
		Parameters:       &parameters,
	}
	if res.ProfitTotal != nil {
		total := decimal.NewFromInt(*res.ProfitTotal)
		record.ProfitTotal = &total
	}
	return s.RecordSimulation(ctx, record)
}

// CountSimulations returns the number of stored simulations
func (s *Store) CountSimulations(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_simulations`).Scan(&n); err != nil {
		return 0, s.fail("count simulations", err)
	}
	return n, nil
}

func (s *Store) aggregatesChanged(ctx context.Context) {
	if s.inTx {
		s.changed = true
		return
	}
	s.invalidate(ctx)
}

// invalidate is best effort; the cache TTL bounds staleness when it fails
func (s *Store) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("failed to invalidate aggregate cache", zap.Error(err))
	}
}

func (s *Store) fail(op string, err error) error {
	s.logger.Error("storage operation failed", zap.String("op", op), zap.Error(err))
	return errors.Storage(op, err)
}

func parseNumeric(v sql.NullString) (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v.String)
}

func parseOptional(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
