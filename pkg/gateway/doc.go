// Package gateway provides the HTTP server that sits between API
// clients and LLM providers, forwarding traffic byte-for-byte while
// metering usage into the ledger.
//
// # Request flow
//
// A proxied call runs through: customer attribution (X-Customer-Id),
// transparent forwarding to the configured upstream, usage extraction
// from a captured copy of the response, cost calculation, and an
// asynchronous hand-off to the ledger recorder. The client response is
// never altered or delayed by metering: extraction failures produce an
// estimated event, recorder failures go to the dead-letter store, and
// neither surfaces on the response path.
//
// Streamed (SSE) responses are passed through chunk by chunk and
// metered exactly once after the stream ends. A client disconnect
// mid-stream produces no event.
//
// # Read API
//
// Alongside the proxy routes the server exposes the ledger read API
// (usage aggregates, event listings, insights), CSV import uploads,
// a health endpoint, and Prometheus metrics.
package gateway
