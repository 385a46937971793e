package ledger

import (
	"context"
	"fmt"
	"time"

	"meterr-hq/io/pkg/costs"
)

// Source tags where a metering event entered the system. It is provenance
// metadata, set once at creation and never mutated.
type Source string

const (
	// SourceLive marks events observed by the interception gateway.
	SourceLive Source = "live"

	// SourceImport marks events reconciled from a bulk CSV export.
	SourceImport Source = "import"
)

// RecordOutcome reports what a Record call did.
type RecordOutcome int

const (
	// OutcomeInserted means a new ledger row was written.
	OutcomeInserted RecordOutcome = iota

	// OutcomeDuplicateSkipped means a row with the same EventID already
	// existed and the call was a no-op.
	OutcomeDuplicateSkipped
)

// String returns the outcome name.
func (o RecordOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicateSkipped:
		return "duplicate_skipped"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// MeteringEvent is one durable record of a single billable API usage
// occurrence. Events are immutable after insert.
type MeteringEvent struct {
	// EventID is the deterministic idempotency key. See eventid.go for
	// derivation. Unique per logical occurrence.
	EventID string `json:"event_id"`

	// CustomerID is the owning entity. Required, immutable.
	CustomerID string `json:"customer_id"`

	// Provider is the upstream service name (e.g. "openai").
	Provider string `json:"provider"`

	// Model is the model actually used, which can differ from the model
	// requested due to provider-side aliasing.
	Model string `json:"model"`

	// PromptTokens is the prompt token count. Never negative.
	PromptTokens int64 `json:"prompt_tokens"`

	// CompletionTokens is the completion token count. Never negative.
	CompletionTokens int64 `json:"completion_tokens"`

	// CostAmount is the computed cost in micro-USD. Always >= 0.
	CostAmount costs.Amount `json:"cost_amount"`

	// CostConfidence records whether the pricing table had an exact match
	// for the model.
	CostConfidence costs.Confidence `json:"cost_confidence"`

	// Source is the provenance tag: live interception or CSV import.
	Source Source `json:"source"`

	// ProviderRequestID is the provider-assigned request identifier when
	// known. It anchors cross-source idempotency.
	ProviderRequestID string `json:"provider_request_id,omitempty"`

	// ImportBatchID links import-sourced events to their batch.
	ImportBatchID string `json:"import_batch_id,omitempty"`

	// AuditOnly marks zero-cost records of failed upstream calls, kept
	// for audit completeness rather than billing.
	AuditOnly bool `json:"audit_only,omitempty"`

	// OccurredAt is when the underlying API call happened, from provider
	// response metadata or the CSV row.
	OccurredAt time.Time `json:"occurred_at"`

	// RecordedAt is when the ledger wrote the event.
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks the event invariants before insert.
func (e *MeteringEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.CustomerID == "" {
		return fmt.Errorf("customer id is required")
	}
	if e.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if e.PromptTokens < 0 || e.CompletionTokens < 0 {
		return fmt.Errorf("token counts must be non-negative")
	}
	if e.PromptTokens == 0 && e.CompletionTokens == 0 && !e.AuditOnly {
		return fmt.Errorf("a billable event needs at least one token count > 0")
	}
	if e.CostAmount < 0 {
		return fmt.Errorf("cost amount must be non-negative")
	}
	switch e.Source {
	case SourceLive, SourceImport:
	default:
		return fmt.Errorf("invalid source %q", e.Source)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}

// ModelAggregate is the per-model slice of an Aggregate.
type ModelAggregate struct {
	Model                 string       `json:"model"`
	TotalCost             costs.Amount `json:"total_cost"`
	TotalPromptTokens     int64        `json:"total_prompt_tokens"`
	TotalCompletionTokens int64        `json:"total_completion_tokens"`
	EventCount            int64        `json:"event_count"`
}

// Aggregate is the result of an aggregation query over a customer and time
// window. Totals are exact sums over the matching rows regardless of
// whether they were live-recorded or imported.
type Aggregate struct {
	CustomerID            string                     `json:"customer_id"`
	From                  time.Time                  `json:"from"`
	To                    time.Time                  `json:"to"`
	TotalCost             costs.Amount               `json:"total_cost"`
	TotalPromptTokens     int64                      `json:"total_prompt_tokens"`
	TotalCompletionTokens int64                      `json:"total_completion_tokens"`
	EventCount            int64                      `json:"event_count"`
	ByModel               map[string]*ModelAggregate `json:"by_model"`
}

// Store is the narrow persistence interface the rest of the system writes
// and reads through. Implementations must be safe for concurrent use, and
// Record must be atomic per event: all fields or none.
type Store interface {
	// Record inserts an event idempotently on EventID. Concurrent writers
	// racing on the same key resolve deterministically: exactly one
	// observes OutcomeInserted, the rest OutcomeDuplicateSkipped.
	Record(ctx context.Context, event *MeteringEvent) (RecordOutcome, error)

	// Aggregate sums usage for a customer over [from, to] by OccurredAt.
	Aggregate(ctx context.Context, customerID string, from, to time.Time) (*Aggregate, error)

	// ListEvents returns matching events ordered by OccurredAt descending.
	ListEvents(ctx context.Context, customerID string, from, to time.Time, limit, offset int) ([]*MeteringEvent, error)

	// Close releases resources held by the store.
	Close() error
}
