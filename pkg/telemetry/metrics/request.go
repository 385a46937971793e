package metrics

import (
	"strconv"
	"time"

	"meterr-hq/io/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// requestDurationBuckets covers LLM request latencies, which routinely
// run into tens of seconds for streamed completions.
var requestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}

// RequestMetrics tracks metrics for the proxied request path.
//
// Metrics:
//   - meterr_requests_total: request count by provider, model, status, streamed
//   - meterr_request_duration_seconds: request duration histogram
//   - meterr_tokens_total: token counts by provider, model, type
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of proxied LLM requests",
			},
			[]string{"provider", "model", "status", "streamed"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied LLM requests in seconds",
				Buckets:   requestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens metered",
			},
			[]string{"provider", "model", "type"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
	)

	return rm
}

// RecordRequest records a completed proxied request.
func (rm *RequestMetrics) RecordRequest(provider, model, status string, streamed bool, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(provider, model, status, strconv.FormatBool(streamed)).Inc()
	rm.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens records prompt and completion token counts separately.
func (rm *RequestMetrics) RecordTokens(provider, model string, promptTokens, completionTokens int64) {
	if promptTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}
