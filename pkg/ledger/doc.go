// Package ledger defines the usage ledger: the durable, append-mostly
// record of metering events that all cost reporting reads from.
//
// A MeteringEvent is one billable usage occurrence, produced either by the
// live interception gateway or by a bulk CSV reconciliation import. Both
// paths derive the same deterministic EventID for the same underlying
// provider call, and the Store's Record operation is idempotent on that
// key: inserting a duplicate is a no-op reporting OutcomeDuplicateSkipped,
// not an error. This single property is what lets live metering and
// historical imports overlap on the same traffic without double-counting.
//
// Storage backends live in the storage subpackage (SQLite for production,
// memory for tests). The recorder subpackage provides the asynchronous
// write side-channel used by the gateway, and deadletter holds events whose
// writes exhausted their retries.
package ledger
