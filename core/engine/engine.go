// Package engine provides the API-primary pricing engine.
// CLI and HTTP are thin wrappers around this engine.
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"commodity-pricing/core/breakeven"
	"commodity-pricing/core/importer"
	"commodity-pricing/core/period"
	"commodity-pricing/core/simulation"
	"commodity-pricing/internal/errors"
	"commodity-pricing/internal/logging"
	"commodity-pricing/internal/metrics"
)

// Aggregates supplies the period totals for break-even analysis
type Aggregates interface {
	FixedCostTotal(ctx context.Context, month period.Month) (decimal.Decimal, error)
	SalesSummary(ctx context.Context, start, end time.Time) (revenue, variableCost decimal.Decimal, err error)
}

// SimulationRecorder persists calculated simulations
type SimulationRecorder interface {
	SaveSimulation(ctx context.Context, in simulation.Input, res *simulation.Result) (string, error)
}

// Deps are the collaborators of an Engine. Only Aggregates is required for
// break-even analysis and Products for imports; the rest are optional.
type Deps struct {
	Aggregates Aggregates
	Products   importer.ProductSink
	Recorder   SimulationRecorder
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	// Mapping is the import layout used when a call supplies none
	Mapping importer.ColumnMapping
}

// Engine is the primary API for pricing calculations.
type Engine struct {
	deps   Deps
	logger *zap.Logger
}

// BreakEvenReport is a break-even result for one month
type BreakEvenReport struct {
	YearMonth string `json:"year_month"`
	*breakeven.Result
}

// New creates an engine
func New(deps Deps) *Engine {
	if deps.Mapping == nil {
		deps.Mapping = importer.DefaultColumnMapping()
	}
	return &Engine{deps: deps, logger: logging.OrNop(deps.Logger)}
}

// Mapping returns the default import layout
func (e *Engine) Mapping() importer.ColumnMapping {
	return e.deps.Mapping
}

// SimulatePrice runs a price simulation and records it when a recorder is
// configured. A failed recording is logged; the calculation still succeeds.
func (e *Engine) SimulatePrice(ctx context.Context, in simulation.Input) (*simulation.Result, error) {
	result, err := simulation.Simulate(in)
	if err != nil {
		return nil, err
	}
	e.deps.Metrics.SimulationCalculated()

	e.logger.Debug("price simulated",
		zap.String("unit_cost", in.UnitCost.String()),
		zap.String("target_margin_rate", in.TargetMarginRate.String()),
		zap.Int64("recommended_price", result.RecommendedPrice),
	)

	if e.deps.Recorder != nil {
		if _, err := e.deps.Recorder.SaveSimulation(ctx, in, result); err != nil {
			e.logger.Error("failed to record simulation", zap.Error(err))
		}
	}
	return result, nil
}

// BreakEven analyzes the month named by yearMonth ("YYYY-MM"). The fixed-cost
// and sales aggregates are fetched concurrently.
func (e *Engine) BreakEven(ctx context.Context, yearMonth string) (*BreakEvenReport, error) {
	month, err := period.ParseYearMonth(yearMonth)
	if err != nil {
		return nil, err
	}
	if e.deps.Aggregates == nil {
		return nil, errors.Internal("no aggregate source configured", nil)
	}

	var fixed, revenue, variableCost decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fixed, err = e.deps.Aggregates.FixedCostTotal(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, variableCost, err = e.deps.Aggregates.SalesSummary(gctx, month.Start, month.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := breakeven.Analyze(breakeven.Aggregates{
		FixedCostTotal:    fixed,
		RevenueTotal:      revenue,
		VariableCostTotal: variableCost,
	})
	if err != nil {
		return nil, err
	}
	e.deps.Metrics.BreakEvenAnalyzed(result.Status.String())

	e.logger.Debug("break-even analyzed",
		zap.String("year_month", month.String()),
		zap.String("fixed_cost_total", fixed.String()),
		zap.String("revenue_total", revenue.String()),
		zap.String("status", result.Status.String()),
	)

	return &BreakEvenReport{YearMonth: month.String(), Result: result}, nil
}

// ImportProducts imports sheet rows into the product store. A nil mapping
// uses the engine's default layout. Products do not feed the break-even
// aggregates, so cached totals stay valid.
func (e *Engine) ImportProducts(ctx context.Context, rows []importer.Row, mapping importer.ColumnMapping) (*importer.Summary, error) {
	if e.deps.Products == nil {
		return nil, errors.Internal("no product store configured", nil)
	}
	if mapping == nil {
		mapping = e.deps.Mapping
	}

	summary, err := importer.New(mapping, e.logger).Import(ctx, rows, e.deps.Products)
	if err != nil {
		return nil, err
	}
	e.deps.Metrics.ImportRows(summary.Imported, summary.Skipped)

	e.logger.Info("products imported",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}
