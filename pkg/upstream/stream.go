package upstream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// StreamAccumulator reassembles usage metadata from an SSE stream as the
// raw bytes pass through to the client. Feed it every line of the stream;
// it keeps the last usage information seen and never modifies the data.
type StreamAccumulator interface {
	// Line consumes one line of the SSE stream.
	Line(line string)

	// Meta returns what was learned from the stream so far.
	Meta() *ResponseMeta
}

// NewStreamAccumulator returns an accumulator for the given wire dialect.
func NewStreamAccumulator(provider string) StreamAccumulator {
	if provider == ProviderAnthropic {
		return &anthropicAccumulator{meta: ResponseMeta{Provider: ProviderAnthropic}}
	}
	return &openAIAccumulator{meta: ResponseMeta{Provider: ProviderOpenAI}}
}

// ConsumeStream reads an entire SSE stream through the accumulator. Used
// on the metering side of a tee; the client-facing copy is unaffected.
func ConsumeStream(r io.Reader, acc StreamAccumulator) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		acc.Line(scanner.Text())
	}
	return scanner.Err()
}

// openAIAccumulator tracks the OpenAI stream dialect, where the final
// data chunk before [DONE] carries the usage block when the client asked
// for it via stream_options.
type openAIAccumulator struct {
	meta ResponseMeta
}

func (a *openAIAccumulator) Line(line string) {
	data, ok := ssePayload(line)
	if !ok || data == "[DONE]" {
		return
	}

	var chunk struct {
		ID    string       `json:"id"`
		Model string       `json:"model"`
		Usage *openAIUsage `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return
	}

	if chunk.ID != "" {
		a.meta.RequestID = chunk.ID
	}
	if chunk.Model != "" {
		a.meta.Model = chunk.Model
	}
	if chunk.Usage != nil {
		a.meta.Usage = Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
		}
		a.meta.UsageReported = true
	}
}

func (a *openAIAccumulator) Meta() *ResponseMeta {
	meta := a.meta
	return &meta
}

// anthropicAccumulator tracks the Anthropic stream dialect. input_tokens
// arrive in the message_start event, output_tokens in message_delta
// events, the last of which holds the final count.
type anthropicAccumulator struct {
	meta ResponseMeta
}

func (a *anthropicAccumulator) Line(line string) {
	data, ok := ssePayload(line)
	if !ok {
		return
	}

	var event struct {
		Type    string `json:"type"`
		Message *struct {
			ID    string          `json:"id"`
			Model string          `json:"model"`
			Usage *anthropicUsage `json:"usage"`
		} `json:"message"`
		Usage *anthropicUsage `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return
	}

	switch event.Type {
	case "message_start":
		if event.Message == nil {
			return
		}
		a.meta.RequestID = event.Message.ID
		a.meta.Model = event.Message.Model
		if event.Message.Usage != nil {
			a.meta.Usage.PromptTokens = event.Message.Usage.InputTokens
			a.meta.Usage.CompletionTokens = event.Message.Usage.OutputTokens
			a.meta.UsageReported = true
		}
	case "message_delta":
		if event.Usage != nil {
			a.meta.Usage.CompletionTokens = event.Usage.OutputTokens
			a.meta.UsageReported = true
		}
	}
}

func (a *anthropicAccumulator) Meta() *ResponseMeta {
	meta := a.meta
	return &meta
}

// ssePayload extracts the data payload from an SSE line. The space after
// the colon is optional in the wire format.
func ssePayload(line string) (string, bool) {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(payload, " "), true
}
