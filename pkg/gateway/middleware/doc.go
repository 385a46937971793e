// Package middleware provides HTTP middleware for the metering gateway.
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order:
//
//	handler = Recovery(Logging(RequestID(CORS(handler))))
//
// Order (innermost to outermost):
//  1. CORS: Add Cross-Origin Resource Sharing headers
//  2. RequestID: Generate and propagate request ID
//  3. Logging: Log request/response details
//  4. Recovery: Recover from panics
//
// No timeout middleware wraps the proxy routes: streamed completions stay
// open as long as the upstream streams, so their lifetime is bounded by
// the upstream forwarder and the client connection, not a wall clock.
//
// # Customer Identity
//
// CustomerIDMiddleware resolves the calling customer from the
// X-Customer-Id header and stores it in the request context. Metering is
// attribution, so requests without a customer identity are rejected
// before they reach the upstream.
package middleware
