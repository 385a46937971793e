package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meterr-hq/io/pkg/config"
	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/gateway/middleware"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/upstream"
)

const openAIResponseBody = `{
  "id": "chatcmpl-abc123",
  "model": "gpt-4",
  "choices": [{"message": {"role": "assistant", "content": "hello"}}],
  "usage": {"prompt_tokens": 1000, "completion_tokens": 500, "total_tokens": 1500}
}`

func postChat(t *testing.T, gw *httptest.Server, headers map[string]string, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, gw.URL+"/v1/chat/completions", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestProxy_ByteTransparency(t *testing.T) {
	var upstreamAuth, upstreamBody string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		upstreamAuth = r.Header.Get("Authorization")
		upstreamBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req_upstream_1")
		w.Write([]byte(openAIResponseBody))
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	requestBody := `{"model": "gpt-4", "messages": [{"role": "user", "content": "hi"}]}`
	resp := postChat(t, gw, map[string]string{
		"X-Customer-Id": "cust_1",
		"Authorization": "Bearer sk-test",
	}, requestBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, []byte(openAIResponseBody)) {
		t.Errorf("response body altered:\ngot  %q\nwant %q", got, openAIResponseBody)
	}
	if upstreamBody != requestBody {
		t.Errorf("request body altered: %q", upstreamBody)
	}
	if upstreamAuth != "Bearer sk-test" {
		t.Errorf("Authorization not forwarded, got %q", upstreamAuth)
	}

	events := h.waitForEvents(t, "cust_1", 1)
	event := events[0]
	if event.Provider != "openai" || event.Model != "gpt-4" {
		t.Errorf("event attribution = %s/%s", event.Provider, event.Model)
	}
	if event.PromptTokens != 1000 || event.CompletionTokens != 500 {
		t.Errorf("tokens = %d/%d, want 1000/500", event.PromptTokens, event.CompletionTokens)
	}
	if event.CostConfidence != costs.ConfidenceExact {
		t.Errorf("confidence = %q, want exact", event.CostConfidence)
	}
	// gpt-4 at 0.03/1K prompt and 0.06/1K completion.
	want := costs.MustParseUSD("0.03") + costs.MustParseUSD("0.03")
	if event.CostAmount != want {
		t.Errorf("cost = %s, want %s", event.CostAmount, want)
	}
	if event.ProviderRequestID != "chatcmpl-abc123" {
		t.Errorf("provider request id = %q", event.ProviderRequestID)
	}
	if event.Source != ledger.SourceLive {
		t.Errorf("source = %q, want live", event.Source)
	}
}

func TestProxy_DuplicateDelivery(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAIResponseBody))
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	headers := map[string]string{"X-Customer-Id": "cust_1"}
	postChat(t, gw, headers, `{"model": "gpt-4"}`)
	postChat(t, gw, headers, `{"model": "gpt-4"}`)

	// Both calls carry the same provider request ID; the second write is
	// a duplicate and must not create a second row.
	h.waitForEvents(t, "cust_1", 1)
	time.Sleep(150 * time.Millisecond)
	events := h.waitForEvents(t, "cust_1", 1)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
}

func TestProxy_MissingCustomerRejected(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be reached without attribution")
	}))
	defer up.Close()

	_, gw := newGatewayServer(t, up)

	resp := postChat(t, gw, nil, `{"model": "gpt-4"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestProxy_DefaultCustomer(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAIResponseBody))
	}))
	defer up.Close()

	h := newTestHarness(t, up.URL, func(cfg *config.Config) {
		cfg.Gateway.DefaultCustomerID = "cust_default"
	})
	gw := httptest.NewServer(h.server.Handler())
	defer gw.Close()

	resp := postChat(t, gw, nil, `{"model": "gpt-4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	events := h.waitForEvents(t, "cust_default", 1)
	if events[0].CustomerID != "cust_default" {
		t.Errorf("customer = %q", events[0].CustomerID)
	}
}

func TestProxy_UpstreamErrorAudited(t *testing.T) {
	errorBody := `{"error": {"type": "rate_limit_error", "message": "slow down"}}`
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(errorBody))
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	resp := postChat(t, gw, map[string]string{"X-Customer-Id": "cust_1"}, `{"model": "gpt-4"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 passed through", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != errorBody {
		t.Errorf("error body altered: %q", got)
	}

	events := h.waitForEvents(t, "cust_1", 1)
	event := events[0]
	if !event.AuditOnly {
		t.Error("upstream error should produce an audit-only event")
	}
	if event.CostAmount != 0 {
		t.Errorf("audit event cost = %s, want 0", event.CostAmount)
	}

	// Audit rows stay out of the billable aggregate.
	agg, err := h.store.Aggregate(context.Background(), "cust_1", event.OccurredAt.Add(-time.Minute), event.OccurredAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if agg.TotalCost != 0 || agg.EventCount != 0 {
		t.Errorf("aggregate includes audit row: cost=%s count=%d", agg.TotalCost, agg.EventCount)
	}
}

func TestProxy_MissingUsageEstimated(t *testing.T) {
	body := `{"id": "resp_1", "model": "gpt-4", "choices": [{"message": {"content": "hello there"}}]}`
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	resp := postChat(t, gw, map[string]string{"X-Customer-Id": "cust_1"}, `{"model": "gpt-4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	events := h.waitForEvents(t, "cust_1", 1)
	event := events[0]
	if event.CostConfidence != costs.ConfidenceEstimated {
		t.Errorf("confidence = %q, want estimated", event.CostConfidence)
	}
	wantTokens := int64(len(body) / 4)
	if event.CompletionTokens != wantTokens {
		t.Errorf("estimated completion tokens = %d, want %d", event.CompletionTokens, wantTokens)
	}
}

func TestProxy_UnknownUpstream(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()

	h := newTestHarness(t, up.URL, nil)
	delete(h.server.dependencies.Forwarders, "anthropic")
	gw := httptest.NewServer(h.server.Handler())
	defer gw.Close()

	req, _ := http.NewRequest(http.MethodPost, gw.URL+"/v1/messages", strings.NewReader(`{}`))
	req.Header.Set("X-Customer-Id", "cust_1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestProxy_MethodNotAllowed(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()

	_, gw := newGatewayServer(t, up)

	req, _ := http.NewRequest(http.MethodGet, gw.URL+"/v1/chat/completions", nil)
	req.Header.Set("X-Customer-Id", "cust_1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestProxy_StreamingMeteredOnce(t *testing.T) {
	chunks := []string{
		`data: {"id": "chatcmpl-s1", "model": "gpt-4", "choices": [{"delta": {"content": "hel"}}]}`,
		`data: {"id": "chatcmpl-s1", "model": "gpt-4", "choices": [{"delta": {"content": "lo"}}]}`,
		`data: {"id": "chatcmpl-s1", "model": "gpt-4", "choices": [], "usage": {"prompt_tokens": 200, "completion_tokens": 50}}`,
		`data: [DONE]`,
	}
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprintf(w, "%s\n\n", chunk)
			flusher.Flush()
		}
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	resp := postChat(t, gw, map[string]string{"X-Customer-Id": "cust_1"}, `{"model": "gpt-4", "stream": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got, _ := io.ReadAll(resp.Body)
	want := strings.Join(chunks, "\n\n") + "\n\n"
	if string(got) != want {
		t.Errorf("stream body altered:\ngot  %q\nwant %q", got, want)
	}

	events := h.waitForEvents(t, "cust_1", 1)
	event := events[0]
	if event.PromptTokens != 200 || event.CompletionTokens != 50 {
		t.Errorf("tokens = %d/%d, want 200/50", event.PromptTokens, event.CompletionTokens)
	}
	if event.CostConfidence != costs.ConfidenceExact {
		t.Errorf("confidence = %q, want exact", event.CostConfidence)
	}
	if event.ProviderRequestID != "chatcmpl-s1" {
		t.Errorf("provider request id = %q", event.ProviderRequestID)
	}

	// A second listing after a settle confirms exactly one event.
	time.Sleep(150 * time.Millisecond)
	events = h.waitForEvents(t, "cust_1", 1)
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1", len(events))
	}
}

func TestProxy_AnthropicStream(t *testing.T) {
	chunks := []string{
		`event: message_start`,
		`data: {"type": "message_start", "message": {"id": "msg_01", "model": "claude-3-5-sonnet", "usage": {"input_tokens": 120}}}`,
		``,
		`event: content_block_delta`,
		`data: {"type": "content_block_delta", "delta": {"type": "text_delta", "text": "hi"}}`,
		``,
		`event: message_delta`,
		`data: {"type": "message_delta", "usage": {"output_tokens": 40}}`,
		``,
	}
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range chunks {
			fmt.Fprintf(w, "%s\n", line)
			flusher.Flush()
		}
	}))
	defer up.Close()

	h := newTestHarness(t, up.URL, nil)
	gw := httptest.NewServer(h.server.Handler())
	defer gw.Close()

	req, _ := http.NewRequest(http.MethodPost, gw.URL+"/v1/messages",
		strings.NewReader(`{"model": "claude-3-5-sonnet", "stream": true}`))
	req.Header.Set("X-Customer-Id", "cust_1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)

	events := h.waitForEvents(t, "cust_1", 1)
	event := events[0]
	if event.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", event.Provider)
	}
	if event.PromptTokens != 120 || event.CompletionTokens != 40 {
		t.Errorf("tokens = %d/%d, want 120/40", event.PromptTokens, event.CompletionTokens)
	}
	if event.ProviderRequestID != "msg_01" {
		t.Errorf("provider request id = %q", event.ProviderRequestID)
	}
}

func TestProxy_RequestIDHeaderSet(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openAIResponseBody))
	}))
	defer up.Close()

	_, gw := newGatewayServer(t, up)

	resp := postChat(t, gw, map[string]string{"X-Customer-Id": "cust_1"}, `{"model": "gpt-4"}`)
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("gateway should stamp a request ID on responses")
	}
}

func TestProxy_UpstreamTimeout(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAIResponseBody))
	}))
	defer up.Close()

	h, gw := newGatewayServer(t, up)

	fw, err := upstream.NewForwarder(&upstream.ForwarderConfig{
		Name:    upstream.ProviderOpenAI,
		BaseURL: up.URL,
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewForwarder() error = %v", err)
	}
	t.Cleanup(fw.Close)
	h.server.dependencies.Forwarders[upstream.ProviderOpenAI] = fw

	start := time.Now()
	resp := postChat(t, gw, map[string]string{"X-Customer-Id": "cust_timeout"},
		`{"model": "gpt-4", "messages": [{"role": "user", "content": "hi"}]}`)
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}
	if elapsed >= 400*time.Millisecond {
		t.Errorf("request returned after %s, timeout not enforced", elapsed)
	}

	events := h.waitForEvents(t, "cust_timeout", 1)
	if !events[0].AuditOnly {
		t.Error("timeout should record an audit-only event")
	}
	if events[0].CostAmount != 0 {
		t.Errorf("audit event cost = %d, want 0", events[0].CostAmount)
	}
}
