package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"meterr-hq/io/pkg/ledger"
)

// MemoryStore implements the ledger.Store interface using an in-memory map.
// This implementation is intended for testing only and should not be used
// in production.
type MemoryStore struct {
	events map[string]*ledger.MeteringEvent
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*ledger.MeteringEvent),
	}
}

// Record inserts a metering event idempotently on EventID.
func (s *MemoryStore) Record(ctx context.Context, event *ledger.MeteringEvent) (ledger.RecordOutcome, error) {
	if err := event.Validate(); err != nil {
		return 0, ledger.NewValidationError(event.EventID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; exists {
		return ledger.OutcomeDuplicateSkipped, nil
	}

	// Copy to avoid mutation through the caller's pointer
	eventCopy := *event
	s.events[event.EventID] = &eventCopy
	return ledger.OutcomeInserted, nil
}

// Aggregate sums billable usage for a customer over [from, to]. Audit-only
// events are excluded, matching the SQLite backend.
func (s *MemoryStore) Aggregate(ctx context.Context, customerID string, from, to time.Time) (*ledger.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := &ledger.Aggregate{
		CustomerID: customerID,
		From:       from,
		To:         to,
		ByModel:    make(map[string]*ledger.ModelAggregate),
	}

	for _, event := range s.events {
		if event.CustomerID != customerID || event.AuditOnly {
			continue
		}
		if event.OccurredAt.Before(from) || event.OccurredAt.After(to) {
			continue
		}

		m := agg.ByModel[event.Model]
		if m == nil {
			m = &ledger.ModelAggregate{Model: event.Model}
			agg.ByModel[event.Model] = m
		}
		m.TotalCost += event.CostAmount
		m.TotalPromptTokens += event.PromptTokens
		m.TotalCompletionTokens += event.CompletionTokens
		m.EventCount++

		agg.TotalCost += event.CostAmount
		agg.TotalPromptTokens += event.PromptTokens
		agg.TotalCompletionTokens += event.CompletionTokens
		agg.EventCount++
	}

	return agg, nil
}

// ListEvents returns events for a customer ordered by OccurredAt descending.
func (s *MemoryStore) ListEvents(ctx context.Context, customerID string, from, to time.Time, limit, offset int) ([]*ledger.MeteringEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	var matched []*ledger.MeteringEvent
	for _, event := range s.events {
		if event.CustomerID != customerID {
			continue
		}
		if event.OccurredAt.Before(from) || event.OccurredAt.After(to) {
			continue
		}
		eventCopy := *event
		matched = append(matched, &eventCopy)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if offset >= len(matched) {
		return []*ledger.MeteringEvent{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// PruneBefore deletes events with OccurredAt older than cutoff.
func (s *MemoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, event := range s.events {
		if event.OccurredAt.Before(cutoff) {
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
