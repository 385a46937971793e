package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"meterr-hq/io/pkg/cli"
	"meterr-hq/io/pkg/config"
	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/gateway"
	"meterr-hq/io/pkg/importer"
	"meterr-hq/io/pkg/insights"
	"meterr-hq/io/pkg/ledger/deadletter"
	"meterr-hq/io/pkg/ledger/recorder"
	"meterr-hq/io/pkg/ledger/retention"
	"meterr-hq/io/pkg/pricing"
	"meterr-hq/io/pkg/telemetry/metrics"
	"meterr-hq/io/pkg/telemetry/tracing"
	"meterr-hq/io/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the metering gateway",
	Long: `Start the metering gateway with the specified configuration.

The gateway listens on the configured address, forwards LLM API requests
byte-for-byte to the configured upstreams, and records one metering event
per completed call in the usage ledger.

Examples:
  # Start with default config
  meterr run

  # Start with custom config
  meterr run --config /etc/meterr/config.yaml

  # Override listen address
  meterr run --listen 0.0.0.0:8080

  # Validate config without starting
  meterr run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Meterr v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Usage ledger.
	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()
	fmt.Printf("✓ Ledger initialized (%s)\n", cfg.Ledger.Backend)

	// Dead-letter store for events that exhaust their write retries.
	var deadLetter *deadletter.Store
	var sink recorder.DeadLetterSink
	if cfg.DeadLetter.Enabled {
		deadLetter, err = deadletter.NewStore(deadletter.StoreConfig{
			DBPath:      cfg.DeadLetter.Path,
			BusyTimeout: cfg.DeadLetter.BusyTimeout,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("opening dead-letter store: %w", err))
		}
		defer deadLetter.Close()
		sink = deadLetter
		fmt.Println("✓ Dead-letter store initialized")
	}

	rec := recorder.NewRecorder(store, sink, &recorder.Config{
		AsyncBuffer:  cfg.Recorder.AsyncBuffer,
		Workers:      cfg.Recorder.Workers,
		WriteTimeout: cfg.Recorder.WriteTimeout,
		MaxAttempts:  cfg.Recorder.MaxAttempts,
		RetryBackoff: cfg.Recorder.RetryBackoff,
	})

	// Scheduled maintenance: retention pruning and dead-letter replay.
	var pruner *retention.Pruner
	if pruneStore, ok := store.(retention.PruneStore); ok {
		pruner = retention.NewPruner(pruneStore, retentionConfig(cfg))
	}
	scheduler := retention.NewScheduler(pruner, deadLetter, store, retentionConfig(cfg))
	ctx := cli.SetupSignalHandler()
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("starting maintenance scheduler: %w", err))
	}
	defer scheduler.Stop()

	// Pricing table, optionally watched and git-synced.
	table, err := buildPricingTable(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if cfg.Pricing.Watch && cfg.Pricing.Dir != "" {
		watcher, err := pricing.NewWatcher(table, cfg.Pricing.Dir, 0)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("starting pricing watcher: %w", err))
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Warn("pricing watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Printf("✓ Pricing watcher on %s\n", cfg.Pricing.Dir)
	}
	if cfg.Pricing.Git.Repo != "" {
		gitSource, err := pricing.NewGitSource(pricing.GitSourceConfig{
			Repository:   cfg.Pricing.Git.Repo,
			Branch:       cfg.Pricing.Git.Branch,
			Path:         cfg.Pricing.Git.Path,
			PollInterval: cfg.Pricing.Git.PollInterval,
		}, table)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("starting pricing git source: %w", err))
		}
		// Initial sync before the poll loop so early events are costed
		// from the repository rates, not the seed table.
		if err := gitSource.Sync(ctx); err != nil {
			slog.Warn("initial pricing git sync failed, serving seed rates until the next poll",
				"repo", cfg.Pricing.Git.Repo, "error", err)
		}
		go gitSource.Run(ctx)
		defer gitSource.Stop()
		fmt.Printf("✓ Pricing git source: %s\n", cfg.Pricing.Git.Repo)
	}

	calc := costs.NewCalculator(table)

	// Upstream forwarders.
	forwarders := make(map[string]*upstream.Forwarder, len(cfg.Upstreams))
	for name, upstreamCfg := range cfg.Upstreams {
		fw, err := upstream.NewForwarder(&upstream.ForwarderConfig{
			Name:         name,
			BaseURL:      upstreamCfg.BaseURL,
			Timeout:      upstreamCfg.Timeout,
			MaxIdleConns: upstreamCfg.MaxIdleConns,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("configuring upstream %s: %w", name, err))
		}
		defer fw.Close()
		forwarders[name] = fw
	}
	fmt.Printf("✓ Upstreams configured (%d)\n", len(forwarders))

	// Observability.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		rec.SetMetrics(collector)
	}
	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("initializing tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	srv := gateway.NewServer(cfg, gateway.Dependencies{
		Store:      store,
		Recorder:   rec,
		Calculator: calc,
		Forwarders: forwarders,
		Importer:   importer.NewImporter(store, calc),
		Insights:   insights.NewGenerator(store, table, &insights.Config{Downgrades: cfg.Insights.Downgrades}),
		Metrics:    collector,
		Tracer:     tracer,
	})

	fmt.Printf("✓ Gateway listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until signal, context cancellation, or server error,
	// and drains the recorder on the way out.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Gateway stopped")
	return nil
}

func retentionConfig(cfg *config.Config) *retention.Config {
	return &retention.Config{
		RetentionDays:   cfg.Retention.RetentionDays,
		PruneSchedule:   cfg.Retention.PruneSchedule,
		ReplaySchedule:  cfg.Retention.ReplaySchedule,
		ReplayBatchSize: cfg.Retention.ReplayBatchSize,
	}
}
