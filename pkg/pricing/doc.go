// Package pricing provides the versioned pricing table that maps a
// (provider, model) pair to per-token rates.
//
// The table is immutable per version: updates build a complete new table and
// swap it in atomically, so a lookup for a given occurredAt always resolves
// against a consistent snapshot. Each entry carries an EffectiveFrom
// timestamp; lookups select the entry with the latest EffectiveFrom that is
// not after the event's occurredAt, which keeps historical recomputation
// accurate after price changes.
//
// # Sources
//
// Pricing can be loaded from three places:
//
//   - The built-in seed table (DefaultEntries), used when no pricing files
//     are configured.
//   - A directory of YAML pricing files, optionally hot-reloaded with a
//     file watcher (fsnotify based, debounced).
//   - A Git repository of pricing files polled on an interval (GitSource),
//     for deployments that version pricing out-of-band.
//
// # Rates
//
// Rates are expressed per 1K tokens in micro-USD (see pkg/costs). YAML files
// carry them as decimal strings (e.g. "0.00025") which are parsed exactly,
// never through float64.
package pricing
