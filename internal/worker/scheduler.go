package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the sync scheduler
type SchedulerConfig struct {
	// Interval is how often a sync pass runs (default: 5m)
	Interval time.Duration
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: 5 * time.Minute,
	}
}

// Syncer runs one incremental sync pass and reports how many
// transactions were inserted.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// SyncPublisher announces a completed sync pass to downstream workers.
type SyncPublisher interface {
	PublishSyncCompleted(ctx context.Context, inserted int, checkpoint int64) error
}

// CheckpointReader exposes the current sync checkpoint.
type CheckpointReader interface {
	LastScannedTimestamp(ctx context.Context) (int64, error)
}

// Scheduler runs periodic sync passes and publishes completion events
// when new transactions arrive. The publisher is optional; without one
// the scheduler still keeps the local database fresh.
type Scheduler struct {
	syncer      Syncer
	checkpoints CheckpointReader
	publisher   SyncPublisher
	config      SchedulerConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopOnce *sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler creates a new sync scheduler
func NewScheduler(syncer Syncer, checkpoints CheckpointReader, publisher SyncPublisher, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		syncer:      syncer,
		checkpoints: checkpoints,
		publisher:   publisher,
		config:      config,
	}
}

// Start begins the sync loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sync scheduler is already running")
	}
	s.running = true
	s.stopOnce = new(sync.Once)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Sync scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop gracefully stops the scheduler and waits for completion.
// Safe to call more than once; concurrent calls close stopCh exactly
// once and all wait for the loop to drain.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	doneCh := s.doneCh
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runLoop is the main sync loop
func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sync immediately on startup
	s.runOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs a single sync pass and publishes the result.
func (s *Scheduler) runOnce(ctx context.Context) {
	inserted, err := s.syncer.Sync(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sync pass failed", "error", err)
		return
	}

	if inserted == 0 || s.publisher == nil {
		return
	}

	checkpoint, err := s.checkpoints.LastScannedTimestamp(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read checkpoint after sync", "error", err)
	}

	if err := s.publisher.PublishSyncCompleted(ctx, inserted, checkpoint); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync completed event",
			"error", err,
			"inserted", inserted)
	}
}
