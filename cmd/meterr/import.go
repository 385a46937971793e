package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meterr-hq/io/pkg/cli"
	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/importer"
)

var importFlags struct {
	file     string
	customer string
	provider string
	output   string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a provider CSV export into the ledger",
	Long: `Import a provider usage CSV export into the usage ledger.

Rows are priced against the current pricing table and written
idempotently: rows already recorded through the live interception path
are skipped as duplicates, so the import acts as reconciliation rather
than double billing.

Examples:
  # Import an OpenAI usage export
  meterr import --file usage.csv --customer acme --provider openai

  # Print the batch result as JSON
  meterr import --file usage.csv --customer acme --provider anthropic --output json`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFlags.file, "file", "f", "", "CSV export file (required)")
	importCmd.Flags().StringVar(&importFlags.customer, "customer", "", "customer to attribute the usage to (required)")
	importCmd.Flags().StringVar(&importFlags.provider, "provider", "", "provider the export came from (required)")
	importCmd.Flags().StringVarP(&importFlags.output, "output", "o", "text", "output format: text, json")

	importCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("customer")
	importCmd.MarkFlagRequired("provider")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("import", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("import", err)
	}
	defer store.Close()

	table, err := buildPricingTable(cfg)
	if err != nil {
		return cli.NewCommandError("import", err)
	}

	file, err := os.Open(importFlags.file)
	if err != nil {
		return cli.NewCommandError("import", err)
	}
	defer file.Close()

	ctx := cli.SetupSignalHandler()
	imp := importer.NewImporter(store, costs.NewCalculator(table))
	batch, err := imp.Import(ctx, importFlags.customer, importFlags.provider, file)
	if err != nil {
		return cli.NewCommandError("import", err)
	}

	if importFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, batch)
	}

	fmt.Printf("Batch %s\n", batch.ID)
	fmt.Printf("  rows:       %d\n", batch.TotalRows)
	fmt.Printf("  inserted:   %d\n", batch.Inserted)
	fmt.Printf("  duplicates: %d\n", batch.Duplicates)
	fmt.Printf("  malformed:  %d\n", batch.Malformed)
	fmt.Printf("  total cost: %s\n", batch.TotalCost)
	for _, rowErr := range batch.RowErrors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Reason)
	}
	return nil
}
