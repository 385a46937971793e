// Package health implements liveness and readiness probes.
//
// # Overview
//
// Liveness is a constant-time process check served on /healthz. Readiness
// runs every registered component probe concurrently, each under its own
// timeout, and reports degraded when any fails; the gateway serves it on
// /readyz with a 503 so orchestrators pull the instance from rotation
// while the ledger is unreachable.
//
// # Usage
//
//	checker := health.New(0)
//	checker.Register("ledger", health.StoreCheck(store))
//
//	status := checker.Readiness(ctx)
//	if status.Status != "ready" {
//	    // one or more components failed their probe
//	}
package health
