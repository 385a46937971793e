// Package logging configures the process-wide slog logger.
//
// # Overview
//
// Setup parses the logging section of the configuration, builds a JSON or
// text handler, and installs it as slog's default. Components attach their
// identity with slog.Default().With("component", ...).
//
// # Secret redaction
//
// Every string attribute passes through a redactor before it is written.
// Provider API keys (sk-..., sk-ant-...) and bearer tokens are masked so
// that credentials echoed in upstream error messages never land in log
// output.
//
// # Usage
//
//	logger, err := logging.Setup(&cfg.Telemetry.Logging)
//	if err != nil {
//	    return err
//	}
//	logger.Info("gateway starting", "listen_address", cfg.Server.ListenAddress)
package logging
