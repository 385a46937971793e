package main

import (
	"fmt"
	"log/slog"

	"meterr-hq/io/pkg/config"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/ledger/storage"
	"meterr-hq/io/pkg/pricing"
	"meterr-hq/io/pkg/telemetry/logging"
)

// loadConfig loads the config file with environment overrides applied
// and installs the configured logger. Every subcommand starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", cfgFile, err)
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if _, err := logging.Setup(&cfg.Telemetry.Logging); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	return cfg, nil
}

// openStore opens the configured ledger backend.
func openStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		return storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.Ledger.SQLite.Path,
			MaxOpenConns: cfg.Ledger.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Ledger.SQLite.MaxIdleConns,
			WALMode:      cfg.Ledger.SQLite.WALMode,
			BusyTimeout:  cfg.Ledger.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger.Backend)
	}
}

// buildPricingTable seeds the pricing table and overlays the configured
// pricing directory when one is set.
func buildPricingTable(cfg *config.Config) (*pricing.Table, error) {
	table := pricing.DefaultTable()

	if cfg.Pricing.Dir != "" {
		entries, version, err := pricing.LoadDir(cfg.Pricing.Dir)
		if err != nil {
			return nil, fmt.Errorf("loading pricing dir %s: %w", cfg.Pricing.Dir, err)
		}
		table.Replace(entries, version)
		slog.Info("pricing table loaded",
			"dir", cfg.Pricing.Dir,
			"entries", len(entries),
			"version", version,
		)
	}

	return table, nil
}
