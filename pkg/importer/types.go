package importer

import (
	"fmt"
	"time"

	"meterr-hq/io/pkg/costs"
)

// maxRowErrors caps how many per-row failures a batch report keeps.
const maxRowErrors = 100

// RowError describes one rejected CSV row.
type RowError struct {
	// Row is the 1-based data row number (the header is row 0).
	Row int `json:"row"`

	// Reason says why the row was rejected.
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Batch is the report of one CSV import run.
type Batch struct {
	// ID is the unique batch identifier, stamped on every event the
	// batch inserts.
	ID string `json:"id"`

	// CustomerID is the customer the usage belongs to.
	CustomerID string `json:"customer_id"`

	// Provider is the provider this export came from.
	Provider string `json:"provider"`

	// StartedAt and CompletedAt bracket the import run.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// TotalRows is the number of data rows seen.
	TotalRows int `json:"total_rows"`

	// Inserted is the number of new ledger rows written.
	Inserted int `json:"inserted"`

	// Duplicates is the number of rows skipped because an event with the
	// same ID already existed, including overlap with live metering.
	Duplicates int `json:"duplicates"`

	// Malformed is the number of rows rejected by parsing or validation.
	Malformed int `json:"malformed"`

	// TotalCost is the summed cost of the inserted rows.
	TotalCost costs.Amount `json:"total_cost"`

	// RowErrors lists up to maxRowErrors rejected rows with reasons.
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// FatalError marks a structurally unusable import file.
type FatalError struct {
	// Reason says why the file could not be processed at all.
	Reason string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("import failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("import failed: %s", e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *FatalError) Unwrap() error {
	return e.Cause
}
