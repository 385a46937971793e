package retention

import (
	"context"
	"testing"
	"time"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/ledger/storage"
)

func seedEvent(id string, occurredAt time.Time) *ledger.MeteringEvent {
	return &ledger.MeteringEvent{
		EventID:          id,
		CustomerID:       "cust-1",
		Provider:         "openai",
		Model:            "gpt-4",
		PromptTokens:     100,
		CompletionTokens: 50,
		CostAmount:       costs.MustParseUSD("0.006"),
		CostConfidence:   costs.ConfidenceExact,
		Source:           ledger.SourceLive,
		OccurredAt:       occurredAt,
		RecordedAt:       occurredAt,
	}
}

func TestPruner_DeletesAgedEvents(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Record(ctx, seedEvent("evt-old", now.AddDate(0, 0, -120))); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if _, err := store.Record(ctx, seedEvent("evt-recent", now.AddDate(0, 0, -5))); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	pruner := NewPruner(store, &Config{RetentionDays: 90})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted event, got %d", deleted)
	}

	events, err := store.ListEvents(ctx, "cust-1", now.AddDate(-1, 0, 0), now, 10, 0)
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "evt-recent" {
		t.Errorf("Expected only the recent event to survive, got %d events", len(events))
	}
}

func TestPruner_ZeroRetentionIsNoOp(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Record(ctx, seedEvent("evt-ancient", time.Now().UTC().AddDate(-3, 0, 0))); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	pruner := NewPruner(store, &Config{RetentionDays: 0})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected no pruning with zero retention, got %d deleted", deleted)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	pruner := NewPruner(store, &Config{RetentionDays: 90, PruneSchedule: "0 3 * * *"})
	scheduler := NewScheduler(pruner, nil, nil, &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !scheduler.IsRunning() {
		t.Error("Expected scheduler to be running")
	}
	if scheduler.NextRun() == nil {
		t.Error("Expected a next run time")
	}

	scheduler.Stop()
	if scheduler.IsRunning() {
		t.Error("Expected scheduler to be stopped")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	pruner := NewPruner(store, &Config{RetentionDays: 90})
	scheduler := NewScheduler(pruner, nil, nil, &Config{
		RetentionDays: 90,
		PruneSchedule: "not a cron expression",
	})

	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestScheduler_NoJobsConfigured(t *testing.T) {
	scheduler := NewScheduler(nil, nil, nil, &Config{PruneSchedule: "", ReplaySchedule: ""})
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if scheduler.IsRunning() {
		t.Error("Expected scheduler to stay idle with no jobs")
	}
}
