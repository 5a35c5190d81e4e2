package cmd

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"commodity-pricing/core/importer"
	"commodity-pricing/core/output"
	"commodity-pricing/internal/errors"
)

var importCmd = &cobra.Command{
	Use:   "import <rows.json>",
	Short: "Import the product master from exported sheet rows",
	Long: `Import products from a JSON array of sheet rows. Each row is an object
keyed by column letter, holding the data rows of the sheet from row 2 on.

Rows missing a code or name, or with a non-numeric cost or price, are
skipped and reported.

Examples:
  pricing import products.json
  pricing import products.json --mapping '{"product_code":"A","product_name":"B"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importMapping string
	importFormat  string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importMapping, "mapping", "", "JSON object overriding field to column mapping")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "cli", "output format (cli, json)")
}

func runImport(cmd *cobra.Command, args []string) error {
	rows, err := readRows(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var mapping importer.ColumnMapping
	if importMapping != "" {
		if mapping, err = importer.ParseColumnMapping(importMapping); err != nil {
			return err
		}
	}

	summary, err := a.Engine.ImportProducts(cmd.Context(), rows, mapping)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), output.Format(importFormat), summary)
}

// readRows decodes a JSON array of rows keeping numbers exact
func readRows(path string) ([]importer.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidParamf("read %s: %v", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []importer.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, errors.Parsing("rows file must be a JSON array of objects", err)
	}
	return rows, nil
}
