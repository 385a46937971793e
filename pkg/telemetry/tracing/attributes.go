package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys for forwarded completion requests. Customer IDs are
// deliberately absent: spans are exported off-host and attribution stays
// in the ledger.
const (
	AttrProvider    = attribute.Key("llm.provider")
	AttrModel       = attribute.Key("llm.model")
	AttrStreamed    = attribute.Key("llm.streamed")
	AttrPromptToks  = attribute.Key("llm.prompt_tokens")
	AttrOutputToks  = attribute.Key("llm.completion_tokens")
	AttrCostUSD     = attribute.Key("llm.cost_usd")
	AttrUpstreamURL = attribute.Key("upstream.url")
)

// RequestAttrs returns the attributes known before the upstream call.
func RequestAttrs(provider, model string, streamed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProvider.String(provider),
		AttrModel.String(model),
		AttrStreamed.Bool(streamed),
	}
}

// UsageAttrs returns the attributes known after usage extraction.
func UsageAttrs(promptTokens, completionTokens int64, costUSD float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPromptToks.Int64(promptTokens),
		AttrOutputToks.Int64(completionTokens),
		AttrCostUSD.Float64(costUSD),
	}
}
