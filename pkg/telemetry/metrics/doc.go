// Package metrics provides Prometheus metrics collection for the
// metering gateway.
//
// # Metrics Categories
//
//   - Request Metrics: proxied request count, duration, and token counts
//   - Event Metrics: metering event outcomes, dead letters, recorder
//     queue depth, and import row tallies
//   - Cost Metrics: attributed cost totals and per-request distribution
//
// # Usage
//
//	collector := metrics.NewCollector(cfg, registry)
//
//	collector.RecordRequest("openai", "gpt-4", "success", false, duration)
//	collector.RecordTokens("openai", "gpt-4", 1200, 300)
//	collector.RecordCost("openai", "gpt-4", 0.05, "exact")
//	collector.RecordMeteringEvent("live", "inserted")
//
// # Prometheus Endpoint
//
// All metrics are exposed in standard Prometheus format via
// Collector.Handler:
//
//	# HELP meterr_requests_total Total number of proxied LLM requests
//	# TYPE meterr_requests_total counter
//	meterr_requests_total{provider="openai",model="gpt-4",status="success",streamed="false"} 1234
//
// # Cardinality Management
//
// Model names come from client traffic and are unbounded, so the
// collector caps unique label combinations at 10,000 and collapses the
// model label to "other" past the limit.
package metrics
