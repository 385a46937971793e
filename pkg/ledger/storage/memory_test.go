package storage

import (
	"context"
	"testing"
	"time"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/ledger"
)

// TestMemoryStore_RecordIdempotent tests duplicate handling in memory.
func TestMemoryStore_RecordIdempotent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	outcome, err := store.Record(ctx, testEvent("evt-1", "cust-1", "gpt-4", now))
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if outcome != ledger.OutcomeInserted {
		t.Fatalf("Expected OutcomeInserted, got %v", outcome)
	}

	outcome, err = store.Record(ctx, testEvent("evt-1", "cust-1", "gpt-4", now))
	if err != nil {
		t.Fatalf("Record() replay failed: %v", err)
	}
	if outcome != ledger.OutcomeDuplicateSkipped {
		t.Fatalf("Expected OutcomeDuplicateSkipped, got %v", outcome)
	}
}

// TestMemoryStore_RecordCopiesEvent tests that callers cannot mutate stored rows.
func TestMemoryStore_RecordCopiesEvent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	event := testEvent("evt-copy", "cust-1", "gpt-4", now)
	if _, err := store.Record(ctx, event); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	event.PromptTokens = 9999

	events, err := store.ListEvents(ctx, "cust-1", now.Add(-time.Hour), now.Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].PromptTokens != 1000 {
		t.Errorf("Stored row mutated through caller pointer: prompt_tokens = %d", events[0].PromptTokens)
	}
}

// TestMemoryStore_Aggregate tests windowed aggregation in memory.
func TestMemoryStore_Aggregate(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []*ledger.MeteringEvent{
		testEvent("evt-1", "cust-1", "gpt-4", base),
		testEvent("evt-2", "cust-1", "claude-3-5-sonnet", base.Add(time.Minute)),
		testEvent("evt-3", "cust-2", "gpt-4", base),
	}
	for _, e := range seed {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) failed: %v", e.EventID, err)
		}
	}

	agg, err := store.Aggregate(ctx, "cust-1", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}
	if agg.EventCount != 2 {
		t.Errorf("Expected 2 events, got %d", agg.EventCount)
	}
	if want := 2 * costs.MustParseUSD("0.004"); agg.TotalCost != want {
		t.Errorf("Expected total cost %s, got %s", want, agg.TotalCost)
	}
	if len(agg.ByModel) != 2 {
		t.Errorf("Expected 2 model buckets, got %d", len(agg.ByModel))
	}
}

// TestMemoryStore_ListPagination tests ordering and paging in memory.
func TestMemoryStore_ListPagination(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		e := testEvent("evt-page-"+string(rune('a'+i)), "cust-1", "gpt-4", base.Add(time.Duration(i)*time.Minute))
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	events, err := store.ListEvents(ctx, "cust-1", base, base.Add(time.Hour), 3, 2)
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events after offset, got %d", len(events))
	}
	if events[0].EventID != "evt-page-b" || events[1].EventID != "evt-page-a" {
		t.Errorf("Unexpected page contents: %s, %s", events[0].EventID, events[1].EventID)
	}
}
