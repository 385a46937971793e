package config

import "time"

// Server defaults.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)

// Upstream defaults.
const (
	DefaultUpstreamTimeout      = 120 * time.Second
	DefaultUpstreamMaxIdleConns = 100
)

// Ledger defaults.
const (
	DefaultLedgerBackend      = "sqlite"
	DefaultSQLitePath         = "data/ledger.db"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteBusyTimeout  = 5 * time.Second
)

// Recorder defaults.
const (
	DefaultRecorderAsyncBuffer  = 1000
	DefaultRecorderWorkers      = 2
	DefaultRecorderWriteTimeout = 5 * time.Second
	DefaultRecorderMaxAttempts  = 3
	DefaultRecorderRetryBackoff = 100 * time.Millisecond
)

// Dead-letter defaults.
const (
	DefaultDeadLetterPath        = "data/deadletter.db"
	DefaultDeadLetterBusyTimeout = 5 * time.Second
)

// Retention defaults.
const (
	DefaultPruneSchedule   = "0 3 * * *"
	DefaultReplaySchedule  = "*/5 * * * *"
	DefaultReplayBatchSize = 100
)

// Pricing defaults.
const (
	DefaultPricingGitBranch    = "main"
	DefaultPricingGitPath      = "pricing"
	DefaultPricingPollInterval = 5 * time.Minute
)

// Telemetry defaults.
const (
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "meterr"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "meterr"
)

// ApplyDefaults applies default values to a Config struct. It sets
// defaults for any fields that have zero values and is idempotent.
//
// Boolean fields whose default is true (CORS, audit events, dead-letter,
// metrics) cannot distinguish "unset" from "explicitly false" after YAML
// unmarshaling, so ApplyDefaults forces them on. Environment overrides
// applied after defaults can still turn them off.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Upstream defaults, applied per provider
	for name, upstream := range cfg.Upstreams {
		if upstream.Timeout == 0 {
			upstream.Timeout = DefaultUpstreamTimeout
		}
		if upstream.MaxIdleConns == 0 {
			upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
		}
		cfg.Upstreams[name] = upstream
	}

	// Gateway defaults
	cfg.Gateway.AuditErrors = true

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Ledger.SQLite.MaxOpenConns == 0 {
		cfg.Ledger.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Ledger.SQLite.MaxIdleConns == 0 {
		cfg.Ledger.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	cfg.Ledger.SQLite.WALMode = true
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Recorder defaults
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Recorder.Workers == 0 {
		cfg.Recorder.Workers = DefaultRecorderWorkers
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Recorder.MaxAttempts == 0 {
		cfg.Recorder.MaxAttempts = DefaultRecorderMaxAttempts
	}
	if cfg.Recorder.RetryBackoff == 0 {
		cfg.Recorder.RetryBackoff = DefaultRecorderRetryBackoff
	}

	// Dead-letter defaults
	cfg.DeadLetter.Enabled = true
	if cfg.DeadLetter.Path == "" {
		cfg.DeadLetter.Path = DefaultDeadLetterPath
	}
	if cfg.DeadLetter.BusyTimeout == 0 {
		cfg.DeadLetter.BusyTimeout = DefaultDeadLetterBusyTimeout
	}

	// Retention defaults
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultPruneSchedule
	}
	if cfg.Retention.ReplaySchedule == "" {
		cfg.Retention.ReplaySchedule = DefaultReplaySchedule
	}
	if cfg.Retention.ReplayBatchSize == 0 {
		cfg.Retention.ReplayBatchSize = DefaultReplayBatchSize
	}

	// Pricing defaults
	if cfg.Pricing.Git.Branch == "" {
		cfg.Pricing.Git.Branch = DefaultPricingGitBranch
	}
	if cfg.Pricing.Git.Path == "" {
		cfg.Pricing.Git.Path = DefaultPricingGitPath
	}
	if cfg.Pricing.Git.PollInterval == 0 {
		cfg.Pricing.Git.PollInterval = DefaultPricingPollInterval
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	cfg.Telemetry.Metrics.Enabled = true
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if !cfg.Telemetry.Tracing.Enabled {
		cfg.Telemetry.Tracing.Insecure = true
	}
}

// applyCORSDefaults fills in CORS defaults.
func applyCORSDefaults(cors *CORSConfig) {
	cors.Enabled = true
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-Customer-Id"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = 3600
	}
}
