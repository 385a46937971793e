package metrics

import (
	"fmt"
	"sync"
	"time"

	"meterr-hq/io/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in the
// metering gateway. It manages metric registration and provides a
// unified interface for recording metrics across components.
//
// Cardinality is capped so that unbounded model names cannot blow up
// the label space; over the limit, the model label collapses to "other".
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	eventMetrics   *EventMetrics
	costMetrics    *CostMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector with the specified
// configuration and Prometheus registry. If registry is nil a fresh
// registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "meterr"
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.eventMetrics = NewEventMetrics(cfg, registry)
	c.costMetrics = NewCostMetrics(cfg, registry)

	return c
}

// RecordRequest records metrics for a completed proxied request.
//
// status is the outcome class ("success", "upstream_error", "error").
// streamed marks SSE responses.
func (c *Collector) RecordRequest(provider, model, status string, streamed bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("request:%s:%s:%s", provider, model, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		model = "other"
	}

	c.requestMetrics.RecordRequest(provider, model, status, streamed, duration)
}

// RecordMeteringEvent records a metering event hand-off outcome.
//
// source is "live" or "import"; outcome is "inserted",
// "duplicate_skipped", "rejected", or "dropped".
func (c *Collector) RecordMeteringEvent(source, outcome string) {
	if !c.config.Enabled {
		return
	}

	c.eventMetrics.RecordEvent(source, outcome)
}

// RecordTokens records prompt and completion token counts for a metered
// call.
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int64) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("tokens:%s:%s", provider, model)
	if !c.cardinalityLimiter.Allow(labelSet) {
		model = "other"
	}

	c.requestMetrics.RecordTokens(provider, model, promptTokens, completionTokens)
}

// RecordCost records the attributed cost of a metered call in USD.
func (c *Collector) RecordCost(provider, model string, costUSD float64, confidence string) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("cost:%s:%s", provider, model)
	if !c.cardinalityLimiter.Allow(labelSet) {
		model = "other"
	}

	c.costMetrics.RecordRequestCost(provider, model, costUSD, confidence)
}

// RecordDeadLetter records an event parked in the dead-letter store.
func (c *Collector) RecordDeadLetter(reason string) {
	if !c.config.Enabled {
		return
	}

	c.eventMetrics.RecordDeadLetter(reason)
}

// UpdateQueueDepth updates the recorder queue depth gauge.
func (c *Collector) UpdateQueueDepth(depth int) {
	if !c.config.Enabled {
		return
	}

	c.eventMetrics.UpdateQueueDepth(depth)
}

// RecordImportRows records the outcome tallies of an import batch.
func (c *Collector) RecordImportRows(provider string, inserted, duplicates, malformed int64) {
	if !c.config.Enabled {
		return
	}

	c.eventMetrics.RecordImportRows(provider, inserted, duplicates, malformed)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the specified maximum
// cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be used. Known label sets are
// always allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
