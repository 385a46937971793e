package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meterr-hq/io/pkg/cli"
	"meterr-hq/io/pkg/insights"
)

var insightsFlags struct {
	customer string
	days     int
	output   string
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate cost optimization insights for a customer",
	Long: `Analyze a customer's recent usage and suggest cost optimizations.

The analysis covers model downgrade opportunities with exact re-priced
savings, prompt-heavy usage patterns, and spend concentration on a
single model.

Examples:
  # Insights over the default 30-day window
  meterr insights --customer acme

  # A shorter window, as JSON
  meterr insights --customer acme --days 7 --output json`,
	RunE: runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)

	insightsCmd.Flags().StringVar(&insightsFlags.customer, "customer", "", "customer to analyze (required)")
	insightsCmd.Flags().IntVar(&insightsFlags.days, "days", 30, "analysis window in days")
	insightsCmd.Flags().StringVarP(&insightsFlags.output, "output", "o", "text", "output format: text, json")

	insightsCmd.MarkFlagRequired("customer")
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("insights", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("insights", err)
	}
	defer store.Close()

	table, err := buildPricingTable(cfg)
	if err != nil {
		return cli.NewCommandError("insights", err)
	}

	generator := insights.NewGenerator(store, table, &insights.Config{
		Downgrades: cfg.Insights.Downgrades,
	})

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -insightsFlags.days)

	ctx := cli.SetupSignalHandler()
	result, err := generator.Generate(ctx, insightsFlags.customer, from, to)
	if err != nil {
		return cli.NewCommandError("insights", err)
	}

	if insightsFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	if len(result) == 0 {
		fmt.Printf("No insights for %s over the last %d days\n", insightsFlags.customer, insightsFlags.days)
		return nil
	}
	for _, insight := range result {
		fmt.Printf("[%s] %s\n", insight.Type, insight.Title)
		fmt.Printf("  %s\n", insight.Description)
		fmt.Printf("  estimated savings: %s (%s)\n", insight.EstimatedSavings, insight.Confidence)
	}
	return nil
}
