package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/ledger/deadletter"
)

// Scheduler runs retention pruning and dead-letter replay on cron
// schedules.
type Scheduler struct {
	pruner     *Pruner
	deadLetter *deadletter.Store
	store      ledger.Store
	config     *Config
	cron       *cron.Cron
	mu         sync.Mutex
	logger     *slog.Logger
	running    bool
}

// NewScheduler creates a maintenance scheduler. deadLetter may be nil to
// disable replay, and pruner may be nil to disable pruning.
func NewScheduler(pruner *Pruner, deadLetter *deadletter.Store, store ledger.Store, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scheduler{
		pruner:     pruner,
		deadLetter: deadLetter,
		store:      store,
		config:     config,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "ledger.scheduler"),
	}
}

// Start registers the configured jobs and begins the cron loop.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "*/5 * * * *"  - Every 5 minutes
//
// An empty schedule disables the corresponding job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := 0

	if s.pruner != nil && s.config.PruneSchedule != "" {
		if _, err := cron.ParseStandard(s.config.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", s.config.PruneSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.PruneSchedule, func() {
			s.runPruning(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
		jobs++
	}

	if s.deadLetter != nil && s.store != nil && s.config.ReplaySchedule != "" {
		if _, err := cron.ParseStandard(s.config.ReplaySchedule); err != nil {
			return fmt.Errorf("invalid replay schedule %q: %w", s.config.ReplaySchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.ReplaySchedule, func() {
			s.runReplay(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule replay: %w", err)
		}
		jobs++
	}

	if jobs == 0 {
		s.logger.Info("no maintenance jobs configured, skipping scheduler")
		return nil
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("ledger maintenance scheduler started",
		"prune_schedule", s.config.PruneSchedule,
		"replay_schedule", s.config.ReplaySchedule,
		"retention_days", s.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runPruning executes a pruning cycle.
func (s *Scheduler) runPruning(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
	}
}

// runReplay executes a dead-letter replay cycle.
func (s *Scheduler) runReplay(ctx context.Context) {
	replayed, err := s.deadLetter.Replay(ctx, s.store, s.config.ReplayBatchSize)
	if err != nil {
		s.logger.Error("scheduled dead-letter replay failed", "error", err)
		return
	}
	if replayed > 0 {
		s.logger.Info("scheduled dead-letter replay completed", "replayed_count", replayed)
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("ledger maintenance scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled job time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return &next
}
