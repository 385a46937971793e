package upstream

import (
	"encoding/json"
	"net/http"
)

// openAIResponse is the subset of an OpenAI chat completion response the
// gateway reads.
type openAIResponse struct {
	ID    string       `json:"id"`
	Model string       `json:"model"`
	Usage *openAIUsage `json:"usage"`
}

// openAIUsage represents token usage in OpenAI format.
type openAIUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// anthropicResponse is the subset of an Anthropic messages response the
// gateway reads.
type anthropicResponse struct {
	ID    string          `json:"id"`
	Model string          `json:"model"`
	Usage *anthropicUsage `json:"usage"`
}

// anthropicUsage represents token usage in Anthropic format.
type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ExtractOpenAI parses usage from an OpenAI-dialect response body. Headers
// may be nil; when present they supply the request ID fallback.
func ExtractOpenAI(body []byte, headers http.Header) (*ResponseMeta, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Provider: ProviderOpenAI, Cause: err}
	}

	meta := &ResponseMeta{
		Provider:  ProviderOpenAI,
		Model:     resp.Model,
		RequestID: resp.ID,
	}
	if meta.RequestID == "" && headers != nil {
		meta.RequestID = headers.Get("X-Request-Id")
	}
	if resp.Usage != nil {
		meta.Usage = Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
		meta.UsageReported = true
	}
	return meta, nil
}

// ExtractAnthropic parses usage from an Anthropic-dialect response body.
func ExtractAnthropic(body []byte, headers http.Header) (*ResponseMeta, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Provider: ProviderAnthropic, Cause: err}
	}

	meta := &ResponseMeta{
		Provider:  ProviderAnthropic,
		Model:     resp.Model,
		RequestID: resp.ID,
	}
	if meta.RequestID == "" && headers != nil {
		meta.RequestID = headers.Get("Request-Id")
	}
	if resp.Usage != nil {
		meta.Usage = Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		}
		meta.UsageReported = true
	}
	return meta, nil
}

// Extract parses a unary response body in the given wire dialect.
func Extract(provider string, body []byte, headers http.Header) (*ResponseMeta, error) {
	switch provider {
	case ProviderAnthropic:
		return ExtractAnthropic(body, headers)
	default:
		return ExtractOpenAI(body, headers)
	}
}
