package pricing

import (
	"sort"
	"strings"
	"sync"
	"time"

	"meterr-hq/io/pkg/costs"
)

// DefaultModel is the reserved model name for a provider's fallback rate.
// An entry for (provider, "default") prices any model of that provider that
// has no exact or prefix match. The (DefaultProvider, DefaultModel) entry is
// the global fallback.
const DefaultModel = "default"

// DefaultProvider is the reserved provider name for the global fallback rate.
const DefaultProvider = "default"

// Entry is one versioned pricing row: the rates for a (provider, model)
// pair effective from a point in time. Entries are immutable; a price
// change is a new entry with a later EffectiveFrom.
type Entry struct {
	// Provider is the upstream provider name (e.g. "openai", "anthropic").
	Provider string

	// Model is the model identifier, or DefaultModel for the provider
	// fallback rate.
	Model string

	// InputPer1K is the price per 1000 prompt tokens in micro-USD.
	InputPer1K costs.Amount

	// OutputPer1K is the price per 1000 completion tokens in micro-USD.
	OutputPer1K costs.Amount

	// EffectiveFrom is when this entry starts to apply. Lookups pick the
	// entry with the latest EffectiveFrom that is not after the event's
	// occurredAt.
	EffectiveFrom time.Time
}

// Table is a versioned pricing table. Each loaded version is immutable;
// Replace swaps the whole snapshot atomically, so concurrent lookups always
// see a consistent table. Table implements costs.PriceSource.
type Table struct {
	mu       sync.RWMutex
	versions map[string]map[string][]Entry // provider -> model -> entries sorted by EffectiveFrom
	version  string
}

// NewTable creates a pricing table from the given entries.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	t.Replace(entries, "")
	return t
}

// Replace swaps in a complete new set of entries, discarding the previous
// snapshot. The version string is informational (file hash, git commit).
// Safe to call while lookups are in flight.
func (t *Table) Replace(entries []Entry, version string) {
	index := make(map[string]map[string][]Entry)
	for _, e := range entries {
		models, ok := index[e.Provider]
		if !ok {
			models = make(map[string][]Entry)
			index[e.Provider] = models
		}
		models[e.Model] = append(models[e.Model], e)
	}
	for _, models := range index {
		for _, list := range models {
			sort.Slice(list, func(i, j int) bool {
				return list[i].EffectiveFrom.Before(list[j].EffectiveFrom)
			})
		}
	}

	t.mu.Lock()
	t.versions = index
	t.version = version
	t.mu.Unlock()
}

// Version returns the identifier of the active snapshot.
func (t *Table) Version() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Lookup resolves the rate for (provider, model) at the given time.
//
// Resolution order:
//  1. Exact (provider, model) entry effective at the time -> MatchExact.
//  2. Longest model-prefix entry of the provider -> MatchPrefix
//     (tolerates provider-side model aliasing like date-suffixed names).
//  3. The provider's DefaultModel entry -> MatchProviderDefault.
//  4. The global (DefaultProvider, DefaultModel) entry -> MatchGlobalDefault.
//
// Absence of an exact price is never an error: every event must get a cost,
// even an imprecise one.
func (t *Table) Lookup(provider, model string, at time.Time) (costs.Rate, costs.Match) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if models, ok := t.versions[provider]; ok {
		if e, ok := pick(models[model], at); ok {
			return e.rate(), costs.MatchExact
		}

		// Longest-prefix match within the provider.
		var best *Entry
		for pattern, list := range models {
			if pattern == DefaultModel || pattern == model {
				continue
			}
			if !strings.HasPrefix(model, pattern) {
				continue
			}
			if e, ok := pick(list, at); ok {
				if best == nil || len(pattern) > len(best.Model) {
					entry := e
					best = &entry
				}
			}
		}
		if best != nil {
			return best.rate(), costs.MatchPrefix
		}

		if e, ok := pick(models[DefaultModel], at); ok {
			return e.rate(), costs.MatchProviderDefault
		}
	}

	if models, ok := t.versions[DefaultProvider]; ok {
		if e, ok := pick(models[DefaultModel], at); ok {
			return e.rate(), costs.MatchGlobalDefault
		}
	}

	return costs.Rate{}, costs.MatchNone
}

func (e Entry) rate() costs.Rate {
	return costs.Rate{InputPer1K: e.InputPer1K, OutputPer1K: e.OutputPer1K}
}

// pick returns the entry with the latest EffectiveFrom <= at.
// The list must be sorted by EffectiveFrom ascending.
func pick(list []Entry, at time.Time) (Entry, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].EffectiveFrom.After(at) {
			return list[i], true
		}
	}
	return Entry{}, false
}
