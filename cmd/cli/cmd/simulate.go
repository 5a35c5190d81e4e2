package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"commodity-pricing/core/engine"
	"commodity-pricing/core/output"
	"commodity-pricing/core/simulation"
	"commodity-pricing/internal/errors"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Derive a sale price from a unit cost and target margin",
	Long: `Calculate the recommended price per kg for a target gross margin, the
profit it yields and a comparison ladder from 10% to 30% margin.

Examples:
  pricing simulate --cost 620 --margin 0.2
  pricing simulate --cost 620 --margin 0.2 --quantity 1000 --format json
  pricing simulate --cost 620 --margin 0.2 --record`,
	RunE: runSimulate,
}

var (
	simulateCost     string
	simulateMargin   string
	simulateQuantity string
	simulateFormat   string
	simulateRecord   bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateCost, "cost", "", "unit cost in JPY per kg [REQUIRED]")
	simulateCmd.Flags().StringVar(&simulateMargin, "margin", "", "target gross margin as a fraction, e.g. 0.2 [REQUIRED]")
	simulateCmd.Flags().StringVar(&simulateQuantity, "quantity", "", "sold quantity in kg")
	simulateCmd.Flags().StringVarP(&simulateFormat, "format", "f", "cli", "output format (cli, json)")
	simulateCmd.Flags().BoolVar(&simulateRecord, "record", false, "store the simulation in the database")

	simulateCmd.MarkFlagRequired("cost")
	simulateCmd.MarkFlagRequired("margin")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	in, err := simulationInput(simulateCost, simulateMargin, simulateQuantity)
	if err != nil {
		return err
	}

	e := engine.New(engine.Deps{})
	if simulateRecord {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		e = a.Engine
	}

	result, err := e.SimulatePrice(cmd.Context(), in)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), output.Format(simulateFormat), result)
}

func simulationInput(cost, margin, quantity string) (simulation.Input, error) {
	var in simulation.Input
	var err error

	if in.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return in, errors.InvalidParamf("--cost: %q is not a number", cost)
	}
	if in.TargetMarginRate, err = decimal.NewFromString(margin); err != nil {
		return in, errors.InvalidParamf("--margin: %q is not a number", margin)
	}
	if quantity != "" {
		q, err := decimal.NewFromString(quantity)
		if err != nil {
			return in, errors.InvalidParamf("--quantity: %q is not a number", quantity)
		}
		in.Quantity = &q
	}
	return in, nil
}
