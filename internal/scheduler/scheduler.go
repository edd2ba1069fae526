package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

const defaultInterval = time.Hour

// Pruner is the part of weather.HistoryStore the scheduler needs.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Scheduler periodically removes search history entries older than maxAge.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Pruner
	maxAge    time.Duration
	interval  time.Duration
	logger    *zap.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

// New creates a new Scheduler. A maxAge of zero keeps history forever and
// turns Start into a no-op.
func New(store Pruner, maxAge, interval time.Duration, logger *zap.Logger, m *metrics.Collector) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		maxAge:    maxAge,
		interval:  interval,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Start schedules the prune job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.maxAge <= 0 || s.store == nil {
		s.logger.Info("scheduler: history max age not set; pruning disabled")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = defaultInterval
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: history pruning started",
		zap.Duration("interval", interval),
		zap.Duration("max_age", s.maxAge))
	return nil
}

// RunOnce prunes entries older than maxAge and returns how many were removed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduler: history prune failed", zap.Error(err))
		return 0
	}
	s.metrics.RecordPruned(n)
	if n > 0 {
		s.logger.Info("scheduler: pruned history", zap.Int("removed", n), zap.Time("cutoff", cutoff))
	}
	return n
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
