package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the ledger.Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "ledger.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite ledger store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		_, err := s.db.Exec("PRAGMA journal_mode=WAL;")
		if err != nil {
			return ledger.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs))
	if err != nil {
		return ledger.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	_, err = s.db.Exec(Schema)
	if err != nil {
		return ledger.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	_, err = s.db.Exec(InsertSchemaVersion, SchemaVersion)
	if err != nil {
		return ledger.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err = s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return ledger.NewStorageError("sqlite", "get_schema_version", err)
	}

	if version != SchemaVersion {
		return ledger.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Record inserts a metering event idempotently on EventID. The conflict
// resolution happens inside SQLite, so concurrent writers racing on the
// same key see exactly one OutcomeInserted.
func (s *SQLiteStore) Record(ctx context.Context, event *ledger.MeteringEvent) (ledger.RecordOutcome, error) {
	if err := event.Validate(); err != nil {
		return 0, ledger.NewValidationError(event.EventID, err)
	}

	var providerRequestID, importBatchID interface{}
	if event.ProviderRequestID != "" {
		providerRequestID = event.ProviderRequestID
	}
	if event.ImportBatchID != "" {
		importBatchID = event.ImportBatchID
	}

	result, err := s.db.ExecContext(ctx, InsertEvent,
		event.EventID, event.CustomerID, event.Provider, event.Model,
		event.PromptTokens, event.CompletionTokens,
		int64(event.CostAmount), string(event.CostConfidence),
		string(event.Source), providerRequestID, importBatchID, event.AuditOnly,
		event.OccurredAt.UTC(), event.RecordedAt.UTC(),
	)
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "record", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "record", err)
	}
	if affected == 0 {
		return ledger.OutcomeDuplicateSkipped, nil
	}
	return ledger.OutcomeInserted, nil
}

// Aggregate sums billable usage for a customer over [from, to] by
// OccurredAt. Audit-only rows carry no billable usage and are excluded.
func (s *SQLiteStore) Aggregate(ctx context.Context, customerID string, from, to time.Time) (*ledger.Aggregate, error) {
	query := `
		SELECT model,
		       COALESCE(SUM(cost_amount), 0),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COUNT(*)
		FROM metering_events
		WHERE customer_id = ? AND occurred_at >= ? AND occurred_at <= ? AND audit_only = 0
		GROUP BY model
	`

	rows, err := s.db.QueryContext(ctx, query, customerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "aggregate", err)
	}
	defer rows.Close()

	agg := &ledger.Aggregate{
		CustomerID: customerID,
		From:       from,
		To:         to,
		ByModel:    make(map[string]*ledger.ModelAggregate),
	}

	for rows.Next() {
		var m ledger.ModelAggregate
		var cost int64
		if err := rows.Scan(&m.Model, &cost, &m.TotalPromptTokens, &m.TotalCompletionTokens, &m.EventCount); err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		m.TotalCost = costs.Amount(cost)

		agg.ByModel[m.Model] = &m
		agg.TotalCost += m.TotalCost
		agg.TotalPromptTokens += m.TotalPromptTokens
		agg.TotalCompletionTokens += m.TotalCompletionTokens
		agg.EventCount += m.EventCount
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "aggregate", err)
	}

	return agg, nil
}

// ListEvents returns events for a customer ordered by OccurredAt descending.
// Audit-only rows are included so the listing is a complete account of
// observed calls.
func (s *SQLiteStore) ListEvents(ctx context.Context, customerID string, from, to time.Time, limit, offset int) ([]*ledger.MeteringEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT event_id, customer_id, provider, model,
		       prompt_tokens, completion_tokens,
		       cost_amount, cost_confidence,
		       source, provider_request_id, import_batch_id, audit_only,
		       occurred_at, recorded_at
		FROM metering_events
		WHERE customer_id = ? AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, customerID, from.UTC(), to.UTC(), limit, offset)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "list_events", err)
	}
	defer rows.Close()

	events := []*ledger.MeteringEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "list_events", err)
	}

	return events, nil
}

// PruneBefore deletes events with OccurredAt older than cutoff and returns
// the number of rows removed. Used by retention enforcement only; the
// ledger is otherwise append-only.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM metering_events WHERE occurred_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "prune", err)
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite ledger store closed")
	return nil
}

// scanEvent scans a database row into a MeteringEvent.
func scanEvent(rows *sql.Rows) (*ledger.MeteringEvent, error) {
	var event ledger.MeteringEvent
	var cost int64
	var confidence, source string
	var providerRequestID, importBatchID sql.NullString

	err := rows.Scan(
		&event.EventID, &event.CustomerID, &event.Provider, &event.Model,
		&event.PromptTokens, &event.CompletionTokens,
		&cost, &confidence,
		&source, &providerRequestID, &importBatchID, &event.AuditOnly,
		&event.OccurredAt, &event.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	event.CostAmount = costs.Amount(cost)
	event.CostConfidence = costs.Confidence(confidence)
	event.Source = ledger.Source(source)
	if providerRequestID.Valid {
		event.ProviderRequestID = providerRequestID.String
	}
	if importBatchID.Valid {
		event.ImportBatchID = importBatchID.String
	}

	return &event, nil
}
