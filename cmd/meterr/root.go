package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "meterr",
	Short: "Meterr - usage metering and cost attribution for LLM APIs",
	Long: `Meterr is a metering gateway that sits between applications and LLM
providers, attributing every API call to a customer with token counts and
computed cost.

It acts as a byte-transparent HTTP proxy for LLM API requests, providing:
  - Per-call usage extraction for unary and streamed responses
  - Versioned pricing with exact and estimated cost confidence
  - An idempotent, append-only usage ledger with aggregation APIs
  - CSV reconciliation against provider billing exports
  - Cost optimization insights per customer`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
