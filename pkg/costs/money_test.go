package costs

import "testing"

func TestParseUSD(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Amount
		expectErr bool
	}{
		{name: "whole dollars", input: "3", expected: 3_000_000},
		{name: "dollars and cents", input: "1.50", expected: 1_500_000},
		{name: "sub-cent rate", input: "0.00025", expected: 250},
		{name: "full precision", input: "0.000001", expected: 1},
		{name: "gpt-4 prompt rate", input: "0.03", expected: 30_000},
		{name: "leading plus", input: "+0.01", expected: 10_000},
		{name: "negative", input: "-0.5", expected: -500_000},
		{name: "trailing fraction only", input: ".25", expected: 250_000},
		{name: "too many fraction digits", input: "0.0000001", expectErr: true},
		{name: "empty", input: "", expectErr: true},
		{name: "not a number", input: "abc", expectErr: true},
		{name: "bare dot", input: ".", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUSD(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUSD(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseUSD(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAmount_String(t *testing.T) {
	tests := []struct {
		amount   Amount
		expected string
	}{
		{4000, "$0.004000"},
		{1_500_000, "$1.500000"},
		{0, "$0.000000"},
		{-250, "-$0.000250"},
	}

	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.expected {
			t.Errorf("Amount(%d).String() = %q, want %q", tt.amount, got, tt.expected)
		}
	}
}

func TestDivRoundHalfUp(t *testing.T) {
	tests := []struct {
		n, d, expected int64
	}{
		{1000, 1000, 1},
		{1499, 1000, 1},
		{1500, 1000, 2},
		{1501, 1000, 2},
		{0, 1000, 0},
		{-1500, 1000, -2},
		{-1499, 1000, -1},
	}

	for _, tt := range tests {
		if got := divRoundHalfUp(tt.n, tt.d); got != tt.expected {
			t.Errorf("divRoundHalfUp(%d, %d) = %d, want %d", tt.n, tt.d, got, tt.expected)
		}
	}
}
