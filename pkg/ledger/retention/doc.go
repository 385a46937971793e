// Package retention runs the ledger's scheduled maintenance: retention
// pruning of aged metering events and periodic replay of the dead-letter
// store back into the ledger.
//
// Both jobs run on cron schedules. Retention defaults to keeping events
// forever, since a billing ledger usually needs its full history; pruning
// only engages when a retention period is configured. Dead-letter replay
// defaults to every five minutes so parked events re-enter the ledger soon
// after an outage clears.
package retention
