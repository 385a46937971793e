package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/ledger"
)

// Insight types.
const (
	TypeModelDowngrade     = "model_downgrade"
	TypePromptHeavy        = "prompt_heavy"
	TypeModelConcentration = "model_concentration"
)

// Insight is one optimization advisory.
type Insight struct {
	// Type is one of the Type* constants.
	Type string `json:"type"`

	// Title is a short human-readable headline.
	Title string `json:"title"`

	// Description explains what was observed.
	Description string `json:"description"`

	// Model is the model the insight is about, when model-specific.
	Model string `json:"model,omitempty"`

	// RecommendedModel is the suggested replacement for downgrades.
	RecommendedModel string `json:"recommended_model,omitempty"`

	// EstimatedSavings is the projected saving over the analyzed window.
	EstimatedSavings costs.Amount `json:"estimated_savings"`

	// Confidence is ConfidenceExact for re-priced downgrades and
	// ConfidenceEstimated for heuristic projections.
	Confidence costs.Confidence `json:"confidence"`
}

// Config controls insight generation.
type Config struct {
	// Downgrades maps expensive models to cheaper siblings that handle
	// most of the same traffic. Keys also match date-suffixed variants
	// by prefix.
	Downgrades map[string]string
}

// DefaultConfig returns the built-in downgrade map.
func DefaultConfig() *Config {
	return &Config{
		Downgrades: map[string]string{
			"gpt-4":             "gpt-3.5-turbo",
			"claude-3-opus":     "claude-3-5-sonnet",
			"claude-3-5-sonnet": "claude-3-5-haiku",
		},
	}
}

const (
	// promptHeavyRatio flags usage whose average prompt is more than
	// this many times the average completion.
	promptHeavyRatio = 2

	// promptHeavySavingsPct is the assumed saving from trimming verbose
	// prompts.
	promptHeavySavingsPct = 30

	// concentrationPct flags a model carrying more than this share of
	// total spend.
	concentrationPct = 70

	// concentrationSavingsPct is the assumed saving from routing by
	// complexity instead of uniformly.
	concentrationSavingsPct = 35
)

// Generator produces insights from ledger aggregates.
type Generator struct {
	store  ledger.Store
	source costs.PriceSource
	config *Config
	logger *slog.Logger
}

// NewGenerator creates a generator reading from store and re-pricing
// downgrade scenarios with source. A nil config uses DefaultConfig.
func NewGenerator(store ledger.Store, source costs.PriceSource, config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{
		store:  store,
		source: source,
		config: config,
		logger: slog.Default().With("component", "insights"),
	}
}

// Generate analyzes a customer's usage over [from, to] and returns any
// insights that apply, ordered by estimated savings descending.
func (g *Generator) Generate(ctx context.Context, customerID string, from, to time.Time) ([]Insight, error) {
	agg, err := g.store.Aggregate(ctx, customerID, from, to)
	if err != nil {
		return nil, err
	}
	if agg.EventCount == 0 {
		return []Insight{}, nil
	}

	var result []Insight
	result = append(result, g.modelDowngrades(agg)...)
	if insight := g.promptHeavy(agg); insight != nil {
		result = append(result, *insight)
	}
	if insight := g.modelConcentration(agg); insight != nil {
		result = append(result, *insight)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EstimatedSavings > result[j].EstimatedSavings
	})

	g.logger.Debug("insights generated",
		"customer_id", customerID,
		"count", len(result),
	)
	if result == nil {
		result = []Insight{}
	}
	return result, nil
}

// modelDowngrades re-prices each downgrade candidate's traffic at the
// cheaper sibling's rate and reports the exact difference.
func (g *Generator) modelDowngrades(agg *ledger.Aggregate) []Insight {
	var result []Insight
	for model, usage := range agg.ByModel {
		target, ok := g.downgradeTarget(model)
		if !ok || usage.TotalCost == 0 {
			continue
		}

		rate, match := g.source.Lookup(providerForModel(model), target, agg.To)
		if match == costs.MatchNone {
			continue
		}

		downgraded := tokenCost(usage.TotalPromptTokens, rate.InputPer1K) +
			tokenCost(usage.TotalCompletionTokens, rate.OutputPer1K)
		if downgraded >= usage.TotalCost {
			continue
		}

		result = append(result, Insight{
			Type:  TypeModelDowngrade,
			Title: fmt.Sprintf("Route %s traffic to %s", model, target),
			Description: fmt.Sprintf(
				"%d calls on %s cost %s over this window. The same token volume on %s would cost %s.",
				usage.EventCount, model, usage.TotalCost, target, downgraded),
			Model:            model,
			RecommendedModel: target,
			EstimatedSavings: usage.TotalCost - downgraded,
			Confidence:       costs.ConfidenceExact,
		})
	}
	return result
}

// promptHeavy flags usage whose prompts dwarf the completions.
func (g *Generator) promptHeavy(agg *ledger.Aggregate) *Insight {
	if agg.EventCount == 0 || agg.TotalCompletionTokens == 0 {
		return nil
	}
	avgPrompt := agg.TotalPromptTokens / agg.EventCount
	avgCompletion := agg.TotalCompletionTokens / agg.EventCount
	if avgCompletion == 0 || avgPrompt <= promptHeavyRatio*avgCompletion {
		return nil
	}

	savings := costs.Amount(int64(agg.TotalCost) * promptHeavySavingsPct / 100)
	return &Insight{
		Type:  TypePromptHeavy,
		Title: "Reduce prompt verbosity",
		Description: fmt.Sprintf(
			"Prompts average %d tokens but completions only %d. Templating repeated context could cut roughly %d%% of this spend.",
			avgPrompt, avgCompletion, promptHeavySavingsPct),
		EstimatedSavings: savings,
		Confidence:       costs.ConfidenceEstimated,
	}
}

// modelConcentration flags a single model dominating the spend.
func (g *Generator) modelConcentration(agg *ledger.Aggregate) *Insight {
	if agg.TotalCost == 0 || len(agg.ByModel) < 2 {
		return nil
	}

	var topModel string
	var topCost costs.Amount
	for model, usage := range agg.ByModel {
		if usage.TotalCost > topCost {
			topModel, topCost = model, usage.TotalCost
		}
	}

	share := int64(topCost) * 100 / int64(agg.TotalCost)
	if share <= concentrationPct {
		return nil
	}

	savings := costs.Amount(int64(topCost) * concentrationSavingsPct / 100)
	return &Insight{
		Type:  TypeModelConcentration,
		Title: fmt.Sprintf("Route by complexity instead of defaulting to %s", topModel),
		Description: fmt.Sprintf(
			"%d%% of spend goes through %s. Routing simple requests to a cheaper model typically saves around %d%% of that cost.",
			share, topModel, concentrationSavingsPct),
		Model:            topModel,
		EstimatedSavings: savings,
		Confidence:       costs.ConfidenceEstimated,
	}
}

// downgradeTarget resolves a model to its cheaper sibling, matching
// dated variants like claude-3-5-sonnet-20241022 by prefix.
func (g *Generator) downgradeTarget(model string) (string, bool) {
	if target, ok := g.config.Downgrades[model]; ok {
		return target, true
	}
	for candidate, target := range g.config.Downgrades {
		if strings.HasPrefix(model, candidate) {
			return target, true
		}
	}
	return "", false
}

// providerForModel infers the pricing namespace from the model family.
func providerForModel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return "anthropic"
	}
	return "openai"
}

func tokenCost(tokens int64, ratePer1K costs.Amount) costs.Amount {
	return costs.Amount((tokens*int64(ratePer1K) + 500) / 1000)
}
