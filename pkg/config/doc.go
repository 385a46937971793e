// Package config provides configuration management for the metering
// gateway.
//
// This package handles loading, validating, and managing configuration
// from YAML files with environment variable overrides. It provides a
// type-safe configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// DefaultConfig returns a fully defaulted configuration for running
// without a file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention METERR_SECTION_FIELD.
// For example:
//
//   - METERR_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - METERR_UPSTREAMS_OPENAI_BASE_URL overrides upstreams.openai.base_url
//   - METERR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based
// configuration.
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
package config
