package upstream

import (
	"net/http"
	"testing"
)

func TestExtractOpenAI(t *testing.T) {
	body := []byte(`{
		"id": "chatcmpl-abc123",
		"object": "chat.completion",
		"model": "gpt-4-0613",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 1200, "completion_tokens": 340, "total_tokens": 1540}
	}`)

	meta, err := ExtractOpenAI(body, nil)
	if err != nil {
		t.Fatalf("ExtractOpenAI() failed: %v", err)
	}
	if !meta.UsageReported {
		t.Fatal("Expected usage to be reported")
	}
	if meta.Usage.PromptTokens != 1200 || meta.Usage.CompletionTokens != 340 {
		t.Errorf("Unexpected usage: %+v", meta.Usage)
	}
	if meta.Model != "gpt-4-0613" {
		t.Errorf("Expected model 'gpt-4-0613', got '%s'", meta.Model)
	}
	if meta.RequestID != "chatcmpl-abc123" {
		t.Errorf("Expected request ID from body, got '%s'", meta.RequestID)
	}
}

func TestExtractOpenAIRequestIDFromHeader(t *testing.T) {
	body := []byte(`{"model": "gpt-4", "usage": {"prompt_tokens": 10, "completion_tokens": 5}}`)
	headers := http.Header{}
	headers.Set("X-Request-Id", "req_hdr_1")

	meta, err := ExtractOpenAI(body, headers)
	if err != nil {
		t.Fatalf("ExtractOpenAI() failed: %v", err)
	}
	if meta.RequestID != "req_hdr_1" {
		t.Errorf("Expected header request ID fallback, got '%s'", meta.RequestID)
	}
}

func TestExtractOpenAIMissingUsage(t *testing.T) {
	body := []byte(`{"id": "chatcmpl-x", "model": "gpt-4", "choices": []}`)

	meta, err := ExtractOpenAI(body, nil)
	if err != nil {
		t.Fatalf("ExtractOpenAI() failed: %v", err)
	}
	if meta.UsageReported {
		t.Error("Expected no usage reported for a body without a usage block")
	}
}

func TestExtractOpenAIMalformed(t *testing.T) {
	_, err := ExtractOpenAI([]byte(`{"usage": truncat`), nil)
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("Expected *ParseError, got %T", err)
	}
}

func TestExtractAnthropic(t *testing.T) {
	body := []byte(`{
		"id": "msg_01XYZ",
		"type": "message",
		"model": "claude-3-5-sonnet-20241022",
		"content": [{"type": "text", "text": "Hi"}],
		"usage": {"input_tokens": 800, "output_tokens": 150}
	}`)

	meta, err := ExtractAnthropic(body, nil)
	if err != nil {
		t.Fatalf("ExtractAnthropic() failed: %v", err)
	}
	if !meta.UsageReported {
		t.Fatal("Expected usage to be reported")
	}
	if meta.Usage.PromptTokens != 800 || meta.Usage.CompletionTokens != 150 {
		t.Errorf("Unexpected usage: %+v", meta.Usage)
	}
	if meta.RequestID != "msg_01XYZ" {
		t.Errorf("Expected request ID 'msg_01XYZ', got '%s'", meta.RequestID)
	}
	if meta.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Unexpected model '%s'", meta.Model)
	}
}

func TestExtractDispatch(t *testing.T) {
	openaiBody := []byte(`{"model": "gpt-4", "usage": {"prompt_tokens": 1, "completion_tokens": 2}}`)
	anthropicBody := []byte(`{"model": "claude-3-haiku", "usage": {"input_tokens": 3, "output_tokens": 4}}`)

	meta, err := Extract(ProviderOpenAI, openaiBody, nil)
	if err != nil || meta.Usage.PromptTokens != 1 {
		t.Errorf("OpenAI dispatch failed: meta=%+v err=%v", meta, err)
	}
	meta, err = Extract(ProviderAnthropic, anthropicBody, nil)
	if err != nil || meta.Usage.PromptTokens != 3 {
		t.Errorf("Anthropic dispatch failed: meta=%+v err=%v", meta, err)
	}
}

func TestEstimateCompletionTokens(t *testing.T) {
	tests := []struct {
		name      string
		bodyBytes int
		want      int64
	}{
		{"empty body", 0, 0},
		{"tiny body rounds up to one token", 2, 1},
		{"typical body", 4000, 1000},
		{"exact multiple", 400, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateCompletionTokens(tt.bodyBytes); got != tt.want {
				t.Errorf("EstimateCompletionTokens(%d) = %d, want %d", tt.bodyBytes, got, tt.want)
			}
		})
	}
}
