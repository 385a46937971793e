package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"meterr-hq/io/pkg/ledger"
)

// DeadLetterSink receives events that exhausted their write retries.
type DeadLetterSink interface {
	Park(ctx context.Context, event *ledger.MeteringEvent, reason string, attempts int) error
}

// Metrics receives recorder observability callbacks. Satisfied by
// *metrics.Collector.
type Metrics interface {
	RecordDeadLetter(reason string)
	UpdateQueueDepth(depth int)
}

// Config contains configuration for the metering recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// Workers is the number of background writer goroutines.
	// Default: 2
	Workers int

	// WriteTimeout is the timeout for a single write attempt.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxAttempts is the number of write attempts before dead-lettering.
	// Default: 3
	MaxAttempts int

	// RetryBackoff is the delay before the first retry, doubled per attempt.
	// Default: 100 milliseconds
	RetryBackoff time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		Workers:      2,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Recorder writes metering events to the ledger asynchronously so the
// request path never blocks on storage.
type Recorder struct {
	store      ledger.Store
	deadLetter DeadLetterSink
	config     *Config
	eventChan  chan *ledger.MeteringEvent
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	metrics    Metrics
}

// SetMetrics attaches a metrics sink. Call before the first Enqueue; the
// recorder reports queue depth and dead-lettered events through it.
func (r *Recorder) SetMetrics(m Metrics) {
	r.metrics = m
}

// NewRecorder creates a recorder writing to store. deadLetter may be nil,
// in which case exhausted events are logged and dropped.
func NewRecorder(store ledger.Store, deadLetter DeadLetterSink, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 100 * time.Millisecond
	}

	r := &Recorder{
		store:      store,
		deadLetter: deadLetter,
		config:     config,
		eventChan:  make(chan *ledger.MeteringEvent, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "ledger.recorder"),
	}

	for i := 0; i < config.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("metering recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"workers", config.Workers,
		"write_timeout", config.WriteTimeout,
		"max_attempts", config.MaxAttempts,
	)

	return r
}

// Enqueue hands an event to the background writers. It validates first so
// malformed events fail fast on the caller's goroutine, then returns
// without waiting for durability. A full buffer is an error rather than a
// block: the caller decides whether to log and move on.
func (r *Recorder) Enqueue(event *ledger.MeteringEvent) error {
	if err := event.Validate(); err != nil {
		return ledger.NewValidationError(event.EventID, err)
	}

	select {
	case <-r.done:
		return ledger.NewRecorderError(event.EventID, context.Canceled)
	default:
	}

	select {
	case r.eventChan <- event:
		if r.metrics != nil {
			r.metrics.UpdateQueueDepth(len(r.eventChan))
		}
		return nil
	default:
		r.logger.Error("event channel full, rejecting event",
			"event_id", event.EventID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return ledger.NewRecorderError(event.EventID, context.DeadlineExceeded)
	}
}

// Close drains the channel and waits for all pending writes to complete.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down metering recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("metering recorder shut down complete")
	})
	return nil
}

// worker drains the event channel and writes events to the ledger.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			// Drain remaining events from channel before exit
			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent writes one event with bounded retries and dead-letters it on
// exhaustion.
func (r *Recorder) writeEvent(event *ledger.MeteringEvent) {
	if r.metrics != nil {
		r.metrics.UpdateQueueDepth(len(r.eventChan))
	}

	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		outcome, err := r.store.Record(ctx, event)
		cancel()

		if err == nil {
			r.logger.Debug("metering event recorded",
				"event_id", event.EventID,
				"customer_id", event.CustomerID,
				"outcome", outcome.String(),
			)
			return
		}

		lastErr = err
		r.logger.Warn("metering event write failed",
			"event_id", event.EventID,
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"error", err,
		)

		if attempt < r.config.MaxAttempts {
			time.Sleep(r.config.RetryBackoff << (attempt - 1))
		}
	}

	if r.deadLetter == nil {
		r.logger.Error("metering event dropped, no dead-letter sink",
			"event_id", event.EventID,
			"error", lastErr,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.deadLetter.Park(ctx, event, lastErr.Error(), r.config.MaxAttempts); err != nil {
		r.logger.Error("failed to dead-letter metering event",
			"event_id", event.EventID,
			"write_error", lastErr,
			"park_error", err,
		)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordDeadLetter("write_exhausted")
	}
}
