package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention METERR_SECTION_FIELD (e.g. METERR_SERVER_LISTEN_ADDRESS) and
// always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with all defaults applied and no
// upstreams, suitable as a starting point for tests and for running
// without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// applyEnvOverrides applies METERR_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("METERR_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("METERR_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("METERR_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("METERR_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("METERR_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("METERR_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Upstream overrides for the known providers
	applyUpstreamEnvOverrides(cfg, "openai")
	applyUpstreamEnvOverrides(cfg, "anthropic")

	// Gateway overrides
	envString("METERR_GATEWAY_DEFAULT_CUSTOMER_ID", &cfg.Gateway.DefaultCustomerID)
	envBool("METERR_GATEWAY_AUDIT_ERRORS", &cfg.Gateway.AuditErrors)

	// Ledger overrides
	envString("METERR_LEDGER_BACKEND", &cfg.Ledger.Backend)
	envString("METERR_LEDGER_SQLITE_PATH", &cfg.Ledger.SQLite.Path)
	envInt("METERR_LEDGER_SQLITE_MAX_OPEN_CONNS", &cfg.Ledger.SQLite.MaxOpenConns)
	envDuration("METERR_LEDGER_SQLITE_BUSY_TIMEOUT", &cfg.Ledger.SQLite.BusyTimeout)

	// Recorder overrides
	envInt("METERR_RECORDER_ASYNC_BUFFER", &cfg.Recorder.AsyncBuffer)
	envInt("METERR_RECORDER_WORKERS", &cfg.Recorder.Workers)
	envDuration("METERR_RECORDER_WRITE_TIMEOUT", &cfg.Recorder.WriteTimeout)
	envInt("METERR_RECORDER_MAX_ATTEMPTS", &cfg.Recorder.MaxAttempts)
	envDuration("METERR_RECORDER_RETRY_BACKOFF", &cfg.Recorder.RetryBackoff)

	// Dead-letter overrides
	envBool("METERR_DEAD_LETTER_ENABLED", &cfg.DeadLetter.Enabled)
	envString("METERR_DEAD_LETTER_PATH", &cfg.DeadLetter.Path)

	// Retention overrides
	envInt("METERR_RETENTION_DAYS", &cfg.Retention.RetentionDays)
	envString("METERR_RETENTION_PRUNE_SCHEDULE", &cfg.Retention.PruneSchedule)
	envString("METERR_RETENTION_REPLAY_SCHEDULE", &cfg.Retention.ReplaySchedule)
	envInt("METERR_RETENTION_REPLAY_BATCH_SIZE", &cfg.Retention.ReplayBatchSize)

	// Pricing overrides
	envString("METERR_PRICING_DIR", &cfg.Pricing.Dir)
	envBool("METERR_PRICING_WATCH", &cfg.Pricing.Watch)
	envString("METERR_PRICING_GIT_REPO", &cfg.Pricing.Git.Repo)
	envString("METERR_PRICING_GIT_BRANCH", &cfg.Pricing.Git.Branch)
	envString("METERR_PRICING_GIT_PATH", &cfg.Pricing.Git.Path)
	envDuration("METERR_PRICING_GIT_POLL_INTERVAL", &cfg.Pricing.Git.PollInterval)

	// Telemetry overrides
	envString("METERR_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("METERR_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("METERR_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("METERR_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("METERR_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("METERR_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("METERR_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

// applyUpstreamEnvOverrides applies overrides for a single upstream.
// Setting METERR_UPSTREAMS_<NAME>_BASE_URL creates the upstream if the
// file did not declare it.
func applyUpstreamEnvOverrides(cfg *Config, name string) {
	prefix := "METERR_UPSTREAMS_" + strings.ToUpper(name) + "_"

	upstream, exists := cfg.Upstreams[name]
	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		upstream.BaseURL = val
		exists = true
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			upstream.Timeout = d
		}
	}
	if !exists {
		return
	}
	if upstream.Timeout == 0 {
		upstream.Timeout = DefaultUpstreamTimeout
	}
	if upstream.MaxIdleConns == 0 {
		upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if cfg.Upstreams == nil {
		cfg.Upstreams = make(map[string]UpstreamConfig)
	}
	cfg.Upstreams[name] = upstream
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}
