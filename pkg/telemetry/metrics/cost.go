package metrics

import (
	"meterr-hq/io/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CostMetrics tracks cost attribution.
//
// Metrics:
//   - meterr_cost_usd_total: attributed cost in USD by provider, model, confidence
//   - meterr_cost_per_request_usd: cost distribution per request
type CostMetrics struct {
	costTotal      *prometheus.CounterVec
	costPerRequest *prometheus.HistogramVec
}

// NewCostMetrics creates and registers cost metrics with the provided
// registry.
func NewCostMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cost_usd_total",
				Help:      "Total attributed cost in USD",
			},
			[]string{"provider", "model", "confidence"},
		),

		costPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "cost_per_request_usd",
				Help:      "Cost distribution per request in USD",
				// LLM call costs cluster between a tenth of a cent and a
				// few dollars.
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"provider", "model"},
		),
	}

	registry.MustRegister(
		cm.costTotal,
		cm.costPerRequest,
	)

	return cm
}

// RecordRequestCost records the attributed cost of a single call.
func (cm *CostMetrics) RecordRequestCost(provider, model string, costUSD float64, confidence string) {
	if costUSD < 0 {
		return
	}

	cm.costTotal.WithLabelValues(provider, model, confidence).Add(costUSD)
	cm.costPerRequest.WithLabelValues(provider, model).Observe(costUSD)
}
