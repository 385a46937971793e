package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"meterr-hq/io/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the gateway.

All validation errors are reported at once, each with the field path that
failed.

Examples:
  meterr validate
  meterr validate --config /etc/meterr/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err == nil {
		fmt.Printf("✓ %s is valid\n", cfgFile)
		return nil
	}

	var validationErr config.ValidationError
	if errors.As(err, &validationErr) {
		fmt.Printf("✗ %s has %d problem(s):\n", cfgFile, len(validationErr.Errors))
		for _, fieldErr := range validationErr.Errors {
			fmt.Printf("  %s: %s\n", fieldErr.Field, fieldErr.Message)
		}
		return fmt.Errorf("configuration invalid")
	}
	return err
}
