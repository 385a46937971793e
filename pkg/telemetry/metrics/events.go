package metrics

import (
	"meterr-hq/io/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics tracks the metering event pipeline.
//
// Metrics:
//   - meterr_metering_events_total: event outcomes by source
//   - meterr_dead_letters_total: events parked for replay, by reason
//   - meterr_recorder_queue_depth: current async recorder backlog
//   - meterr_import_rows_total: import row outcomes by provider
type EventMetrics struct {
	eventsTotal      *prometheus.CounterVec
	deadLettersTotal *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	importRowsTotal  *prometheus.CounterVec
}

// NewEventMetrics creates and registers event pipeline metrics with the
// provided registry.
func NewEventMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EventMetrics {
	em := &EventMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "metering_events_total",
				Help:      "Total metering events by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		deadLettersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "dead_letters_total",
				Help:      "Total events parked in the dead-letter store",
			},
			[]string{"reason"},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "recorder_queue_depth",
				Help:      "Current number of events waiting in the recorder queue",
			},
		),

		importRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "import_rows_total",
				Help:      "Total CSV import rows by provider and result",
			},
			[]string{"provider", "result"},
		),
	}

	registry.MustRegister(
		em.eventsTotal,
		em.deadLettersTotal,
		em.queueDepth,
		em.importRowsTotal,
	)

	return em
}

// RecordEvent records a metering event outcome.
func (em *EventMetrics) RecordEvent(source, outcome string) {
	em.eventsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordDeadLetter records an event parked for replay.
func (em *EventMetrics) RecordDeadLetter(reason string) {
	em.deadLettersTotal.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth updates the recorder backlog gauge.
func (em *EventMetrics) UpdateQueueDepth(depth int) {
	em.queueDepth.Set(float64(depth))
}

// RecordImportRows records the outcome tallies of an import batch.
func (em *EventMetrics) RecordImportRows(provider string, inserted, duplicates, malformed int64) {
	if inserted > 0 {
		em.importRowsTotal.WithLabelValues(provider, "inserted").Add(float64(inserted))
	}
	if duplicates > 0 {
		em.importRowsTotal.WithLabelValues(provider, "duplicate_skipped").Add(float64(duplicates))
	}
	if malformed > 0 {
		em.importRowsTotal.WithLabelValues(provider, "malformed").Add(float64(malformed))
	}
}
