package retention

import (
	"context"
	"log/slog"
	"time"
)

// PruneStore is the slice of a storage backend the pruner needs.
type PruneStore interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config contains configuration for ledger maintenance.
type Config struct {
	// RetentionDays is the number of days to retain metering events.
	// 0 means keep events forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ReplaySchedule is a cron expression for scheduling dead-letter
	// replay. Example: "*/5 * * * *" (every 5 minutes)
	ReplaySchedule string

	// ReplayBatchSize is the dead-letter replay batch size.
	// Default: 100
	ReplayBatchSize int
}

// DefaultConfig returns the default maintenance configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:   0,
		PruneSchedule:   "0 3 * * *",
		ReplaySchedule:  "*/5 * * * *",
		ReplayBatchSize: 100,
	}
}

// Pruner enforces the retention period on metering events.
type Pruner struct {
	store  PruneStore
	config *Config
	logger *slog.Logger
}

// NewPruner creates a new retention pruner.
func NewPruner(store PruneStore, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "ledger.retention"),
	}
}

// Prune deletes metering events older than the retention period. Returns
// the number of events deleted. A zero retention period is a no-op.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
	deleted, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.Info("pruned metering events",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff", cutoff,
		)
	} else {
		p.logger.Debug("no metering events pruned",
			"retention_days", p.config.RetentionDays,
		)
	}
	return deleted, nil
}
