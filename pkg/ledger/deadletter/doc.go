// Package deadletter durably parks metering events that exhausted their
// write retries, so that transient ledger outages never silently drop
// billable usage.
//
// The store is a small standalone SQLite database separate from the ledger
// itself. Parked events keep their full payload as JSON plus the failure
// reason and attempt count, and can be replayed back into the ledger once
// the outage clears. Replay relies on the ledger's insert idempotency, so
// replaying an event that did land after all is harmless.
package deadletter
