package ledger

import (
	"strings"
	"testing"
	"time"

	"meterr-hq/io/pkg/costs"
)

func validEvent() *MeteringEvent {
	return &MeteringEvent{
		EventID:          "abc123",
		CustomerID:       "cust-1",
		Provider:         "openai",
		Model:            "gpt-4",
		PromptTokens:     100,
		CompletionTokens: 50,
		CostAmount:       costs.MustParseUSD("0.006"),
		CostConfidence:   costs.ConfidenceExact,
		Source:           SourceLive,
		OccurredAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMeteringEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MeteringEvent)
		wantErr string
	}{
		{
			name:   "valid event",
			mutate: func(e *MeteringEvent) {},
		},
		{
			name:    "missing event id",
			mutate:  func(e *MeteringEvent) { e.EventID = "" },
			wantErr: "event id",
		},
		{
			name:    "missing customer id",
			mutate:  func(e *MeteringEvent) { e.CustomerID = "" },
			wantErr: "customer id",
		},
		{
			name:    "missing provider",
			mutate:  func(e *MeteringEvent) { e.Provider = "" },
			wantErr: "provider",
		},
		{
			name:    "negative prompt tokens",
			mutate:  func(e *MeteringEvent) { e.PromptTokens = -1 },
			wantErr: "non-negative",
		},
		{
			name:    "negative completion tokens",
			mutate:  func(e *MeteringEvent) { e.CompletionTokens = -1 },
			wantErr: "non-negative",
		},
		{
			name: "zero tokens on billable event",
			mutate: func(e *MeteringEvent) {
				e.PromptTokens = 0
				e.CompletionTokens = 0
			},
			wantErr: "token count",
		},
		{
			name: "zero tokens allowed when audit only",
			mutate: func(e *MeteringEvent) {
				e.PromptTokens = 0
				e.CompletionTokens = 0
				e.CostAmount = 0
				e.AuditOnly = true
			},
		},
		{
			name:    "negative cost",
			mutate:  func(e *MeteringEvent) { e.CostAmount = -1 },
			wantErr: "cost amount",
		},
		{
			name:    "invalid source",
			mutate:  func(e *MeteringEvent) { e.Source = "webhook" },
			wantErr: "invalid source",
		},
		{
			name:    "zero occurred_at",
			mutate:  func(e *MeteringEvent) { e.OccurredAt = time.Time{} },
			wantErr: "occurred_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid event, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestRecordOutcomeString(t *testing.T) {
	if OutcomeInserted.String() != "inserted" {
		t.Errorf("unexpected string for OutcomeInserted: %s", OutcomeInserted.String())
	}
	if OutcomeDuplicateSkipped.String() != "duplicate_skipped" {
		t.Errorf("unexpected string for OutcomeDuplicateSkipped: %s", OutcomeDuplicateSkipped.String())
	}
}
