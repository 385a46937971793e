package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the ledger database schema.
const Schema = `
-- Metering events table
CREATE TABLE IF NOT EXISTS metering_events (
    event_id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,

    -- Usage
    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,

    -- Cost in micro-USD units
    cost_amount INTEGER NOT NULL,
    cost_confidence TEXT NOT NULL,

    -- Provenance
    source TEXT NOT NULL,
    provider_request_id TEXT,
    import_batch_id TEXT,
    audit_only BOOLEAN NOT NULL DEFAULT 0,

    -- Timestamps
    occurred_at TIMESTAMP NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for aggregation and listing queries
CREATE INDEX IF NOT EXISTS idx_events_customer_occurred ON metering_events(customer_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_provider ON metering_events(provider);
CREATE INDEX IF NOT EXISTS idx_events_model ON metering_events(model);
CREATE INDEX IF NOT EXISTS idx_events_import_batch ON metering_events(import_batch_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// InsertEvent inserts a metering event, skipping duplicates on event_id.
const InsertEvent = `
INSERT INTO metering_events (
    event_id, customer_id, provider, model,
    prompt_tokens, completion_tokens,
    cost_amount, cost_confidence,
    source, provider_request_id, import_batch_id, audit_only,
    occurred_at, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(event_id) DO NOTHING;
`
