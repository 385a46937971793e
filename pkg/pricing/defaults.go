package pricing

import "meterr-hq/io/pkg/costs"

// DefaultEntries returns the built-in seed pricing table. It covers the
// common OpenAI and Anthropic tiers plus per-provider and global fallback
// rates, and is used whenever no pricing files are configured. Rates are
// USD per 1K tokens.
//
// Entries have a zero EffectiveFrom so they apply to any event time; a
// loaded pricing file with dated entries takes precedence through the
// normal effective-from selection.
func DefaultEntries() []Entry {
	rows := []struct {
		provider, model, in, out string
	}{
		{"openai", "gpt-4-turbo", "0.01", "0.03"},
		{"openai", "gpt-4o-mini", "0.00015", "0.0006"},
		{"openai", "gpt-4o", "0.0025", "0.01"},
		{"openai", "gpt-4", "0.03", "0.06"},
		{"openai", "gpt-3.5-turbo", "0.0005", "0.0015"},
		{"openai", DefaultModel, "0.0005", "0.0015"},

		{"anthropic", "claude-3-opus", "0.015", "0.075"},
		{"anthropic", "claude-3-5-sonnet", "0.003", "0.015"},
		{"anthropic", "claude-3-sonnet", "0.003", "0.015"},
		{"anthropic", "claude-3-5-haiku", "0.0008", "0.004"},
		{"anthropic", "claude-3-haiku", "0.00025", "0.00125"},
		{"anthropic", DefaultModel, "0.00025", "0.00125"},

		{DefaultProvider, DefaultModel, "0.001", "0.002"},
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			Provider:    r.provider,
			Model:       r.model,
			InputPer1K:  costs.MustParseUSD(r.in),
			OutputPer1K: costs.MustParseUSD(r.out),
		})
	}
	return entries
}

// DefaultTable returns a table seeded with DefaultEntries.
func DefaultTable() *Table {
	t := &Table{}
	t.Replace(DefaultEntries(), "builtin")
	return t
}
