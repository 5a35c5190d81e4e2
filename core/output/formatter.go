// Package output provides output formatting for CLI results.
// This package produces human and machine-readable outputs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"commodity-pricing/core/engine"
	"commodity-pricing/core/importer"
	"commodity-pricing/core/simulation"
	"commodity-pricing/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable box
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes v, which must be a supported result type
	Render(w io.Writer, v any) error
}

// NewFormatter returns the formatter for format
func NewFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatCLI, "":
		return &cliFormatter{printer: message.NewPrinter(language.Japanese)}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, errors.InvalidParamf("unknown output format %q", format)
	}
}

// Render writes v in the given format
func Render(w io.Writer, format Format, v any) error {
	f, err := NewFormatter(format)
	if err != nil {
		return err
	}
	return f.Render(w, v)
}

type jsonFormatter struct{}

func (jsonFormatter) Format() Format { return FormatJSON }

func (jsonFormatter) Render(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const boxWidth = 56

type cliFormatter struct {
	printer *message.Printer
}

func (f *cliFormatter) Format() Format { return FormatCLI }

func (f *cliFormatter) Render(w io.Writer, v any) error {
	b := &box{w: w}
	switch r := v.(type) {
	case *simulation.Result:
		f.simulation(b, r)
	case *engine.BreakEvenReport:
		f.breakEven(b, r)
	case *importer.Summary:
		f.importSummary(b, r)
	default:
		return errors.Internal(fmt.Sprintf("cannot render %T", v), nil)
	}
	return b.err
}

func (f *cliFormatter) simulation(b *box, r *simulation.Result) {
	b.top("PRICE SIMULATION")
	b.row("Recommended price (JPY/kg)", f.yen(r.RecommendedPrice))
	b.row("Gross profit (JPY/kg)", f.yen(r.ProfitPerUnit))
	if r.ProfitTotal != nil {
		b.row("Gross profit total (JPY)", f.yen(*r.ProfitTotal))
	}
	b.row("Margin rate", percent(r.MarginRate))
	b.rule()
	for _, p := range r.Patterns {
		b.row("  margin "+percent(p.MarginRate), f.yen(p.PricePerUnit)+" / +"+f.yen(p.ProfitPerUnit))
	}
	b.rule()
	b.row("Minimum allowed price", f.yen(r.Guard.MinAllowedPrice))
	if r.Guard.BelowMinimum {
		b.row("Warning", r.Guard.WarningMessage)
	}
	b.bottom()
}

func (f *cliFormatter) breakEven(b *box, r *engine.BreakEvenReport) {
	b.top("BREAK-EVEN " + r.YearMonth)
	b.row("Fixed costs (JPY)", f.yen(r.FixedCosts))
	b.row("Current revenue (JPY)", f.yen(r.CurrentRevenue))
	b.row("Variable cost rate", percent(r.VariableCostRate))
	b.row("Gross margin rate", percent(r.GrossMarginRate))
	if r.BreakEvenRevenue != nil {
		b.row("Break-even revenue (JPY)", f.yen(*r.BreakEvenRevenue))
	} else {
		b.row("Break-even revenue (JPY)", "undefined")
	}
	b.row("Achievement rate", percent(r.AchievementRate))
	b.row("Delta revenue (JPY)", f.yen(r.DeltaRevenue))
	b.row("Status", strings.ToUpper(r.Status.String()))
	b.bottom()
}

func (f *cliFormatter) importSummary(b *box, r *importer.Summary) {
	b.top("PRODUCT IMPORT")
	b.row("Imported", fmt.Sprint(r.Imported))
	b.row("Skipped", fmt.Sprint(r.Skipped))
	for _, w := range r.Warnings {
		b.row(fmt.Sprintf("  row %d %s", w.Row, w.Field), w.Reason)
	}
	b.bottom()
}

// yen groups thousands the way Japanese reports do, e.g. ¥38,277,000
func (f *cliFormatter) yen(v int64) string {
	return f.printer.Sprintf("¥%d", v)
}

func percent(rate decimal.Decimal) string {
	return rate.Shift(2).String() + "%"
}

// box draws a fixed-width framed table and keeps the first write error
type box struct {
	w   io.Writer
	err error
}

func (b *box) line(s string) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintln(b.w, s)
}

func (b *box) top(title string) {
	b.line("┌" + strings.Repeat("─", boxWidth) + "┐")
	b.line(fmt.Sprintf("│ %-*s │", boxWidth-2, title))
	b.rule()
}

func (b *box) rule() {
	b.line("├" + strings.Repeat("─", boxWidth) + "┤")
}

func (b *box) row(label, value string) {
	b.line(fmt.Sprintf("│ %-30s %23s │", label, value))
}

func (b *box) bottom() {
	b.line("└" + strings.Repeat("─", boxWidth) + "┘")
}
