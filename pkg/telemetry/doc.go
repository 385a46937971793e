// Package telemetry groups the observability subpackages.
//
// # Components
//
//   - logging: process-wide slog setup with credential redaction
//   - metrics: Prometheus collectors for requests, events, and cost
//   - tracing: OpenTelemetry spans around forwarded requests
//   - health: liveness and readiness probes
//
// Each subpackage is wired independently; the gateway takes a metrics
// collector and tracer as optional dependencies, and the command entry
// point decides which to construct from the configuration.
package telemetry
