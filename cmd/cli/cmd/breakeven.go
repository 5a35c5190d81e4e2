package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"commodity-pricing/core/output"
	"commodity-pricing/core/period"
)

var breakEvenCmd = &cobra.Command{
	Use:   "break-even",
	Short: "Report the break-even position of a month",
	Long: `Compare a month's sales with the revenue needed to cover its fixed costs.

Examples:
  pricing break-even --month 2025-08
  pricing break-even --format json`,
	RunE: runBreakEven,
}

var (
	breakEvenMonth  string
	breakEvenFormat string
)

func init() {
	rootCmd.AddCommand(breakEvenCmd)

	breakEvenCmd.Flags().StringVarP(&breakEvenMonth, "month", "m", "", "month as YYYY-MM (default current month, UTC)")
	breakEvenCmd.Flags().StringVarP(&breakEvenFormat, "format", "f", "cli", "output format (cli, json)")
}

func runBreakEven(cmd *cobra.Command, args []string) error {
	month := breakEvenMonth
	if month == "" {
		month = period.MonthOf(time.Now().UTC()).String()
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Engine.BreakEven(cmd.Context(), month)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), output.Format(breakEvenFormat), report)
}
