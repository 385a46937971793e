package config

import "time"

// Config is the root configuration structure for the metering gateway.
// It contains all configuration sections for the HTTP server, upstream
// providers, the usage ledger, the pricing table, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Upstreams contains configuration for the LLM provider endpoints the
	// gateway forwards to. Keys are provider names ("openai", "anthropic").
	Upstreams map[string]UpstreamConfig `yaml:"upstreams"`

	// Gateway contains metering behavior of the interception path.
	Gateway GatewayConfig `yaml:"gateway"`

	// Ledger contains configuration for the usage ledger storage backend.
	Ledger LedgerConfig `yaml:"ledger"`

	// Recorder contains configuration for the asynchronous event recorder.
	Recorder RecorderConfig `yaml:"recorder"`

	// DeadLetter contains configuration for the dead-letter store that
	// parks events the recorder could not persist.
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`

	// Retention contains configuration for scheduled maintenance jobs.
	Retention RetentionConfig `yaml:"retention"`

	// Pricing contains configuration for the pricing table sources.
	Pricing PricingConfig `yaml:"pricing"`

	// Insights contains configuration for the insight generator.
	Insights InsightsConfig `yaml:"insights"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Zero means no timeout; streamed completions can run
	// for minutes, so the default leaves this unset.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are cut off.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size. It does not limit the
	// request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-Customer-Id"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// UpstreamConfig contains configuration for a single provider endpoint.
type UpstreamConfig struct {
	// BaseURL is the base URL of the provider's API.
	// Example: "https://api.openai.com"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single forwarded request, including the full
	// streamed body.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the connection pool size toward this provider.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// GatewayConfig contains metering behavior of the interception path.
type GatewayConfig struct {
	// DefaultCustomerID attributes requests that carry no X-Customer-Id
	// header. Empty means such requests are rejected.
	// Default: ""
	DefaultCustomerID string `yaml:"default_customer_id"`

	// AuditErrors records a zero-cost audit event for upstream error
	// responses.
	// Default: true
	AuditErrors bool `yaml:"audit_errors"`
}

// LedgerConfig contains configuration for the usage ledger.
type LedgerConfig struct {
	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// MaxOpenConns limits open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a write waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains configuration for the asynchronous recorder.
type RecorderConfig struct {
	// AsyncBuffer is the event queue capacity. A full queue rejects new
	// events rather than blocking the response path.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// Workers is the number of writer goroutines draining the queue.
	// Default: 2
	Workers int `yaml:"workers"`

	// WriteTimeout bounds a single ledger write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxAttempts is how many times a write is tried before the event is
	// dead-lettered.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBackoff is the initial delay between attempts, doubled per
	// attempt.
	// Default: 100ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DeadLetterConfig contains configuration for the dead-letter store.
type DeadLetterConfig struct {
	// Enabled controls whether failed events are parked for replay.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the dead-letter database file path.
	// Default: "data/deadletter.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a write waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains configuration for scheduled maintenance.
type RetentionConfig struct {
	// RetentionDays is the ledger retention horizon in days. Zero keeps
	// events forever.
	// Default: 0
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ReplaySchedule is the cron expression for dead-letter replay.
	// Default: "*/5 * * * *"
	ReplaySchedule string `yaml:"replay_schedule"`

	// ReplayBatchSize is how many dead letters one replay run processes
	// per batch.
	// Default: 100
	ReplayBatchSize int `yaml:"replay_batch_size"`
}

// PricingConfig contains configuration for pricing table sources.
type PricingConfig struct {
	// Dir is a directory of YAML pricing files. Empty uses the built-in
	// seed table only.
	// Default: ""
	Dir string `yaml:"dir"`

	// Watch reloads the pricing directory on file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Git contains optional git-backed pricing source configuration.
	Git GitPricingConfig `yaml:"git"`
}

// GitPricingConfig contains configuration for a git-backed pricing source.
type GitPricingConfig struct {
	// Repo is the clone URL of the pricing repository. Empty disables
	// the git source.
	Repo string `yaml:"repo"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the directory of pricing files inside the repository.
	// Default: "pricing"
	Path string `yaml:"path"`

	// PollInterval is how often the repository is pulled.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`
}

// InsightsConfig contains configuration for the insight generator.
type InsightsConfig struct {
	// Downgrades maps expensive models to cheaper equivalents used by
	// the model downgrade insight. Empty uses the built-in map.
	Downgrades map[string]string `yaml:"downgrades"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "meterr"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name attached to spans.
	// Default: "meterr"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`
}
