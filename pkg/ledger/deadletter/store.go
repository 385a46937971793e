package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"meterr-hq/io/pkg/ledger"
)

// Record is a parked metering event together with its failure context.
type Record struct {
	// ID is the dead-letter row ID, assigned by the store.
	ID int64

	// Event is the metering event that failed to persist.
	Event *ledger.MeteringEvent

	// Reason is the last error message observed before parking.
	Reason string

	// Attempts is the number of write attempts made before parking.
	Attempts int

	// ParkedAt is when the event entered the dead-letter store.
	ParkedAt time.Time
}

// StoreConfig configures the dead-letter store.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store persists dead-lettered metering events in a standalone SQLite
// database, kept separate from the ledger so that a ledger outage does not
// take the fallback down with it.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens or creates the dead-letter database at cfg.DBPath.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "ledger.deadletter"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dead_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		reason TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		parked_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letters_event_id ON dead_letters(event_id);
	CREATE INDEX IF NOT EXISTS idx_dead_letters_parked_at ON dead_letters(parked_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Park stores a failed event with its failure context.
func (s *Store) Park(ctx context.Context, event *ledger.MeteringEvent, reason string, attempts int) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (event_id, payload, reason, attempts, parked_at) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, string(payload), reason, attempts, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to park event: %w", err)
	}

	s.logger.Warn("event parked in dead-letter store",
		"event_id", event.EventID,
		"reason", reason,
		"attempts", attempts,
	)
	return nil
}

// List returns up to limit parked records ordered oldest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, reason, attempts, parked_at FROM dead_letters ORDER BY parked_at ASC, id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var r Record
		var payload string
		var parkedAt int64
		if err := rows.Scan(&r.ID, &payload, &r.Reason, &r.Attempts, &parkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		var event ledger.MeteringEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dead letter %d: %w", r.ID, err)
		}
		r.Event = &event
		r.ParkedAt = time.Unix(parkedAt, 0).UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}

	return records, nil
}

// Count returns the number of parked records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return count, nil
}

// Remove deletes a parked record after a successful replay.
func (s *Store) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove dead letter %d: %w", id, err)
	}
	return nil
}

// Replay drains parked records back into the ledger store in batches of
// batchSize. Records that land (inserted or already present) are removed;
// records that still fail stay parked for the next run. Returns the number
// of records successfully replayed.
func (s *Store) Replay(ctx context.Context, store ledger.Store, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	replayed := 0
	for {
		records, err := s.List(ctx, batchSize)
		if err != nil {
			return replayed, err
		}
		if len(records) == 0 {
			return replayed, nil
		}

		progress := false
		for _, r := range records {
			outcome, err := store.Record(ctx, r.Event)
			if err != nil {
				s.logger.Warn("replay attempt failed, event stays parked",
					"event_id", r.Event.EventID,
					"error", err,
				)
				continue
			}
			if err := s.Remove(ctx, r.ID); err != nil {
				return replayed, err
			}
			s.logger.Info("dead-lettered event replayed",
				"event_id", r.Event.EventID,
				"outcome", outcome.String(),
			)
			replayed++
			progress = true
		}

		if !progress {
			// Everything in this batch still fails, stop instead of spinning.
			return replayed, nil
		}
		if len(records) < batchSize {
			return replayed, nil
		}
	}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
