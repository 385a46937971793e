package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. All field errors are collected and returned together.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any rules fail. It returns nil for a valid
// configuration.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstreams(cfg.Upstreams)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateRecorder(&cfg.Recorder)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateInsights(&cfg.Insights)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must not be negative",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be positive",
		})
	}

	return errs
}

func validateUpstreams(upstreams map[string]UpstreamConfig) []FieldError {
	var errs []FieldError

	for name, upstream := range upstreams {
		prefix := fmt.Sprintf("upstreams.%s", name)

		if upstream.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required",
			})
			continue
		}

		u, err := url.Parse(upstream.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("invalid URL %q", upstream.BaseURL),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
			})
		}

		if upstream.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must not be negative",
			})
		}
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("unknown backend %q (must be sqlite or memory)", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.path",
				Message: "database path is required",
			})
		}
		if cfg.SQLite.MaxOpenConns <= 0 {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.max_open_conns",
				Message: "max open connections must be positive",
			})
		}
	}

	return errs
}

func validateRecorder(cfg *RecorderConfig) []FieldError {
	var errs []FieldError

	if cfg.AsyncBuffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.async_buffer",
			Message: "buffer size must be positive",
		})
	}
	if cfg.Workers <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.workers",
			Message: "worker count must be positive",
		})
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.max_attempts",
			Message: "max attempts must be positive",
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.retention_days",
			Message: "retention days must not be negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q", cfg.PruneSchedule),
			})
		}
	}
	if cfg.ReplaySchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReplaySchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.replay_schedule",
				Message: fmt.Sprintf("invalid cron expression %q", cfg.ReplaySchedule),
			})
		}
	}
	if cfg.ReplayBatchSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.replay_batch_size",
			Message: "replay batch size must be positive",
		})
	}

	return errs
}

// validateInsights rejects downgrade chains that loop back on themselves.
func validateInsights(cfg *InsightsConfig) []FieldError {
	var errs []FieldError

	for model := range cfg.Downgrades {
		if err := checkCircularDowngrade(model, cfg.Downgrades, make(map[string]bool)); err != nil {
			errs = append(errs, FieldError{
				Field:   "insights.downgrades",
				Message: err.Error(),
			})
		}
	}

	return errs
}

func checkCircularDowngrade(model string, downgrades map[string]string, visited map[string]bool) error {
	if visited[model] {
		return fmt.Errorf("circular downgrade chain involving %q", model)
	}
	visited[model] = true

	next, ok := downgrades[model]
	if !ok {
		return nil
	}
	return checkCircularDowngrade(next, downgrades, visited)
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
