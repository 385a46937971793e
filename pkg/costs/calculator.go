package costs

import (
	"fmt"
	"time"
)

// Confidence reports whether a cost was computed from an exact pricing
// match or a fallback rate.
type Confidence string

const (
	// ConfidenceExact means the pricing table had an entry for the exact
	// (provider, model) pair effective at the event time.
	ConfidenceExact Confidence = "exact"

	// ConfidenceEstimated means a fallback rate was applied (model prefix
	// match, provider default, or global default).
	ConfidenceEstimated Confidence = "estimated"
)

// Match identifies how a pricing lookup resolved.
type Match int

const (
	// MatchNone means no rate was found at all, including defaults.
	MatchNone Match = iota

	// MatchExact means the exact (provider, model) pair was priced.
	MatchExact

	// MatchPrefix means a model-prefix entry was used
	// (e.g. "gpt-4" pricing applied to "gpt-4-0613").
	MatchPrefix

	// MatchProviderDefault means the provider's default rate was used.
	MatchProviderDefault

	// MatchGlobalDefault means the global default rate was used.
	MatchGlobalDefault
)

// Rate is a per-1K-token price pair in micro-USD.
type Rate struct {
	// InputPer1K is the price per 1000 prompt tokens.
	InputPer1K Amount

	// OutputPer1K is the price per 1000 completion tokens.
	OutputPer1K Amount
}

// PriceSource resolves the rate applicable to a (provider, model) pair at a
// point in time. Implementations must never block and must be safe for
// concurrent use; pkg/pricing provides the standard implementation.
type PriceSource interface {
	Lookup(provider, model string, at time.Time) (Rate, Match)
}

// Cost is the result of a cost calculation.
type Cost struct {
	// Amount is the total cost in micro-USD. Always >= 0.
	Amount Amount

	// PromptAmount is the prompt-token share of Amount.
	PromptAmount Amount

	// CompletionAmount is the completion-token share of Amount.
	CompletionAmount Amount

	// Confidence is exact when the pricing table matched the model
	// precisely, estimated when any fallback rate was applied.
	Confidence Confidence
}

// Calculator computes costs from token counts using a PriceSource.
// It is stateless and safe for concurrent use.
type Calculator struct {
	source PriceSource
}

// NewCalculator creates a cost calculator backed by the given price source.
func NewCalculator(source PriceSource) *Calculator {
	return &Calculator{source: source}
}

// Calculate computes the cost of a single usage occurrence.
//
// The only error condition is programmer misuse (negative token counts).
// Unknown models never fail: the price source's fallback chain guarantees a
// rate, and the result is flagged ConfidenceEstimated. The calculation is
// deterministic and monotonic: increasing either token count never
// decreases the amount.
func (c *Calculator) Calculate(provider, model string, promptTokens, completionTokens int64, occurredAt time.Time) (Cost, error) {
	if promptTokens < 0 || completionTokens < 0 {
		return Cost{}, fmt.Errorf("token counts must be non-negative (prompt=%d, completion=%d)", promptTokens, completionTokens)
	}

	rate, match := c.source.Lookup(provider, model, occurredAt)

	cost := Cost{
		PromptAmount:     tokenCost(promptTokens, rate.InputPer1K),
		CompletionAmount: tokenCost(completionTokens, rate.OutputPer1K),
		Confidence:       ConfidenceEstimated,
	}
	cost.Amount = cost.PromptAmount + cost.CompletionAmount

	if match == MatchExact {
		cost.Confidence = ConfidenceExact
	}

	return cost, nil
}

// tokenCost computes tokens * ratePer1K / 1000 in integer arithmetic with
// half-up rounding.
func tokenCost(tokens int64, ratePer1K Amount) Amount {
	if tokens <= 0 || ratePer1K <= 0 {
		return 0
	}
	return Amount(divRoundHalfUp(tokens*int64(ratePer1K), 1000))
}
