package upstream

// Usage is the token usage reported by a provider for one call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Total returns the combined token count.
func (u Usage) Total() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// ResponseMeta is what the gateway needs to know about a provider response
// in order to meter it.
type ResponseMeta struct {
	// Provider is the wire dialect the response was parsed as
	// ("openai" or "anthropic").
	Provider string

	// Model is the model the provider reports it actually used.
	Model string

	// RequestID is the provider-assigned request identifier, empty when
	// the provider did not send one.
	RequestID string

	// Usage is the extracted token usage. Only meaningful when
	// UsageReported is true.
	Usage Usage

	// UsageReported is true when the provider response carried a usage
	// block. When false the caller should fall back to estimation.
	UsageReported bool
}

// Wire dialect names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// estimateBytesPerToken is the rough bytes-per-token ratio used when a
// response carries no usage block. Four bytes per token is the common
// English-text approximation.
const estimateBytesPerToken = 4

// EstimateCompletionTokens estimates completion tokens from the response
// body size. Prompt tokens cannot be estimated from the response, so a
// caller using this fallback records prompt tokens as zero and marks the
// event estimated.
func EstimateCompletionTokens(bodyBytes int) int64 {
	if bodyBytes <= 0 {
		return 0
	}
	tokens := int64(bodyBytes) / estimateBytesPerToken
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}
