package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-pricing/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := db.SchemaVersion(cmd.Context(), a.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demonstration product, costs and sales",
	Long: `Insert one product, fixed costs for July and August 2025, and two August
sales. Intended for local evaluation on an empty database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := db.Seed(cmd.Context(), a.Store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded demonstration data for %s\n", db.SeedMonth)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
