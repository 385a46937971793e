// Package recorder provides asynchronous, non-blocking writes of metering
// events into the ledger.
//
// The request path must never wait on ledger durability, so Enqueue hands
// the event to a bounded channel and returns immediately. Background
// workers drain the channel, retry transient failures with backoff, and
// park events that exhaust their retries in a dead-letter sink rather than
// dropping them.
//
// Close drains the channel before returning so that accepted events are
// either written or parked, never lost to shutdown.
package recorder
