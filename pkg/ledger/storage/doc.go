// Package storage provides storage backends for metering events.
//
// # Storage Backends
//
// The package implements the ledger.Store interface twice:
//
//   - SQLite: Embedded database for single-node deployments
//   - Memory: In-memory storage for testing
//
// # SQLite Backend
//
// The SQLite backend provides durable storage with:
//
//   - WAL mode for concurrent reads/writes
//   - A unique primary key on event_id enforcing insert idempotency
//   - Indexes on customer, provider and occurrence time
//   - Connection pooling and a busy timeout for handling locks
//
// # Idempotency
//
// Record uses INSERT ... ON CONFLICT(event_id) DO NOTHING so that a
// replayed event is a cheap no-op. Concurrent writers racing on the same
// event ID resolve inside SQLite: exactly one insert wins and the others
// observe zero affected rows.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
//	    Path: "data/ledger.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	outcome, err := store.Record(ctx, event)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if outcome == ledger.OutcomeDuplicateSkipped {
//	    // already recorded, nothing billed twice
//	}
//
// # Thread Safety
//
// Both backends are safe for concurrent use. Record, Aggregate and
// ListEvents can be called concurrently from multiple goroutines.
package storage
