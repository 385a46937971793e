package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/gateway/middleware"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/telemetry/tracing"
	"meterr-hq/io/pkg/upstream"

	"go.opentelemetry.io/otel/trace"
)

// maxRequestBody caps buffered request bodies. Chat payloads run to a
// few megabytes at most; anything larger is not an LLM call.
const maxRequestBody = 32 << 20

// requestEnvelope is the subset of the client request the gateway needs
// for attribution. The rest of the body is opaque.
type requestEnvelope struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// proxyHandler returns the interception handler for one provider.
func (s *Server) proxyHandler(provider string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
				"only POST is supported")
			return
		}

		forwarder, ok := s.dependencies.Forwarders[provider]
		if !ok {
			middleware.WriteError(w, http.StatusBadGateway, "upstream_unavailable",
				"no upstream configured for "+provider)
			return
		}

		customerID := s.customerID(r)
		if customerID == "" {
			middleware.WriteError(w, http.StatusUnauthorized, "missing_customer",
				"X-Customer-Id header is required")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
				"failed to read request body")
			return
		}

		// Attribution hints from the request. A body the gateway cannot
		// parse is still forwarded untouched.
		var envelope requestEnvelope
		_ = json.Unmarshal(body, &envelope)

		ctx := r.Context()
		headers := r.Header
		var span trace.Span
		if s.dependencies.Tracer != nil {
			ctx = tracing.ExtractHTTP(ctx, r.Header)
			ctx, span = s.dependencies.Tracer.Start(ctx, "proxy."+provider,
				trace.WithAttributes(tracing.RequestAttrs(provider, envelope.Model, envelope.Stream)...))
			headers = r.Header.Clone()
			tracing.InjectHTTP(ctx, headers)
			r = r.WithContext(ctx)
		}

		// Calls the client did not mark streaming are bounded by the
		// forwarder timeout, covering the full buffered body. Streaming
		// stays bounded by the client connection instead.
		if !envelope.Stream {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, forwarder.Timeout())
			defer cancel()
		}

		start := time.Now()
		resp, err := forwarder.Forward(ctx, r.Method, forwardPath(r), headers, bytes.NewReader(body))
		if err != nil {
			if span != nil {
				tracing.EndWithStatus(span, err)
			}
			s.writeForwardError(w, r, provider, envelope.Model, customerID, err)
			return
		}
		defer resp.Body.Close()
		if span != nil {
			defer tracing.EndWithStatus(span, nil)
		}

		copyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)

		streamed := isEventStream(resp.Header)
		switch {
		case streamed:
			s.relayStream(w, r, resp, provider, envelope.Model, customerID, start)
		default:
			s.relayUnary(w, r, resp, provider, envelope.Model, customerID, start)
		}
	})
}

// relayUnary copies a buffered response to the client and meters it.
func (s *Server) relayUnary(w http.ResponseWriter, r *http.Request, resp *http.Response, provider, requestModel, customerID string, start time.Time) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Upstream died mid-body. Whatever arrived has been neither
		// buffered nor delivered; the client sees the truncation.
		s.logger.WarnContext(r.Context(), "upstream body read failed",
			"provider", provider,
			"error", err,
		)
		return
	}
	if _, err := w.Write(body); err != nil {
		s.logger.DebugContext(r.Context(), "client write failed", "error", err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.recordAuditEvent(r, provider, requestModel, customerID, resp.StatusCode)
		s.recordRequestMetrics(provider, requestModel, "upstream_error", false, time.Since(start))
		return
	}

	meta, err := upstream.Extract(provider, body, resp.Header)
	if err != nil {
		s.logger.WarnContext(r.Context(), "usage extraction failed, estimating",
			"provider", provider,
			"error", err,
		)
		meta = &upstream.ResponseMeta{Provider: provider}
	}
	if meta.Model == "" {
		meta.Model = requestModel
	}
	if !meta.UsageReported || meta.Usage.Total() == 0 {
		meta.UsageReported = false
		meta.Usage.CompletionTokens = upstream.EstimateCompletionTokens(len(body))
	}

	s.meter(r, meta, customerID, false)
	s.recordRequestMetrics(provider, meta.Model, "success", false, time.Since(start))
}

// relayStream pipes an SSE body to the client chunk by chunk while a
// stream accumulator watches the same bytes for usage. The event is
// emitted once, after the upstream closes the stream. If the client
// disconnects first the copy fails and nothing is metered.
func (s *Server) relayStream(w http.ResponseWriter, r *http.Request, resp *http.Response, provider, requestModel, customerID string, start time.Time) {
	counter := &countingFlushWriter{w: w}
	tee := io.TeeReader(resp.Body, counter)

	acc := upstream.NewStreamAccumulator(provider)
	if err := upstream.ConsumeStream(tee, acc); err != nil {
		s.logger.InfoContext(r.Context(), "stream ended early, not metered",
			"provider", provider,
			"customer_id", customerID,
			"bytes_relayed", counter.n,
			"error", err,
		)
		s.recordRequestMetrics(provider, requestModel, "error", true, time.Since(start))
		return
	}

	meta := acc.Meta()
	meta.Provider = provider
	if meta.Model == "" {
		meta.Model = requestModel
	}
	if !meta.UsageReported || meta.Usage.Total() == 0 {
		meta.UsageReported = false
		meta.Usage.CompletionTokens = upstream.EstimateCompletionTokens(counter.n)
	}

	s.meter(r, meta, customerID, true)
	s.recordRequestMetrics(provider, meta.Model, "success", true, time.Since(start))
}

// meter builds the metering event for a completed call and hands it to
// the recorder. Failures are logged and counted, never returned.
func (s *Server) meter(r *http.Request, meta *upstream.ResponseMeta, customerID string, streamed bool) {
	now := time.Now().UTC()

	cost, err := s.dependencies.Calculator.Calculate(
		meta.Provider, meta.Model,
		meta.Usage.PromptTokens, meta.Usage.CompletionTokens,
		now,
	)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "cost calculation failed",
			"provider", meta.Provider,
			"model", meta.Model,
			"error", err,
		)
		return
	}
	confidence := cost.Confidence
	if !meta.UsageReported {
		confidence = costs.ConfidenceEstimated
	}

	event := &ledger.MeteringEvent{
		CustomerID:        customerID,
		Provider:          meta.Provider,
		Model:             meta.Model,
		PromptTokens:      meta.Usage.PromptTokens,
		CompletionTokens:  meta.Usage.CompletionTokens,
		CostAmount:        cost.Amount,
		CostConfidence:    confidence,
		Source:            ledger.SourceLive,
		ProviderRequestID: meta.RequestID,
		OccurredAt:        now,
		RecordedAt:        now,
	}
	event.EventID = ledger.EventID(event)

	if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
		span.SetAttributes(tracing.UsageAttrs(
			meta.Usage.PromptTokens, meta.Usage.CompletionTokens, cost.Amount.USD())...)
	}

	s.enqueue(r, event, streamed)

	if s.dependencies.Metrics != nil {
		s.dependencies.Metrics.RecordTokens(meta.Provider, meta.Model,
			meta.Usage.PromptTokens, meta.Usage.CompletionTokens)
		s.dependencies.Metrics.RecordCost(meta.Provider, meta.Model,
			cost.Amount.USD(), string(confidence))
	}
}

// recordAuditEvent records a zero-cost audit row for an upstream error
// response, so failed calls remain visible without affecting spend.
func (s *Server) recordAuditEvent(r *http.Request, provider, model, customerID string, status int) {
	if !s.config.Gateway.AuditErrors {
		return
	}

	now := time.Now().UTC()
	event := &ledger.MeteringEvent{
		CustomerID:     customerID,
		Provider:       provider,
		Model:          model,
		CostConfidence: costs.ConfidenceEstimated,
		Source:         ledger.SourceLive,
		AuditOnly:      true,
		OccurredAt:     now,
		RecordedAt:     now,
	}
	event.EventID = ledger.EventID(event)

	s.logger.DebugContext(r.Context(), "recording audit event for upstream error",
		"provider", provider,
		"status", status,
	)
	s.enqueue(r, event, false)
}

// enqueue hands an event to the recorder, logging and counting drops.
func (s *Server) enqueue(r *http.Request, event *ledger.MeteringEvent, streamed bool) {
	if err := s.dependencies.Recorder.Enqueue(event); err != nil {
		s.logger.ErrorContext(r.Context(), "metering event dropped",
			"event_id", event.EventID,
			"customer_id", event.CustomerID,
			"streamed", streamed,
			"error", err,
		)
		if s.dependencies.Metrics != nil {
			s.dependencies.Metrics.RecordMeteringEvent(string(event.Source), "dropped")
		}
		return
	}
	if s.dependencies.Metrics != nil {
		s.dependencies.Metrics.RecordMeteringEvent(string(event.Source), "enqueued")
	}
}

// writeForwardError maps transport failures to gateway error responses.
// The upstream never produced a response, so these are the gateway's
// own; an audit row still records the attempt.
func (s *Server) writeForwardError(w http.ResponseWriter, r *http.Request, provider, model, customerID string, err error) {
	var timeoutErr *upstream.TimeoutError
	if errors.As(err, &timeoutErr) {
		middleware.WriteError(w, http.StatusGatewayTimeout, "upstream_timeout", timeoutErr.Error())
	} else {
		middleware.WriteError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}

	s.logger.WarnContext(r.Context(), "forward failed",
		"provider", provider,
		"error", err,
	)
	s.recordAuditEvent(r, provider, model, customerID, 0)
	s.recordRequestMetrics(provider, model, "error", false, 0)
}

// customerID resolves attribution: middleware context, then header,
// then the configured default.
func (s *Server) customerID(r *http.Request) string {
	if id := middleware.GetCustomerID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(middleware.CustomerIDHeader); id != "" {
		return id
	}
	return s.config.Gateway.DefaultCustomerID
}

func (s *Server) recordRequestMetrics(provider, model, status string, streamed bool, duration time.Duration) {
	if s.dependencies.Metrics == nil {
		return
	}
	s.dependencies.Metrics.RecordRequest(provider, model, status, streamed, duration)
}

// forwardPath preserves the request path and query toward the upstream.
func forwardPath(r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}

// copyHeaders copies upstream response headers verbatim.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func isEventStream(h http.Header) bool {
	return strings.HasPrefix(h.Get("Content-Type"), "text/event-stream")
}

// countingFlushWriter forwards writes to the client immediately so SSE
// chunks are not buffered, and tracks bytes for the estimation
// fallback.
type countingFlushWriter struct {
	w http.ResponseWriter
	n int
}

func (c *countingFlushWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
