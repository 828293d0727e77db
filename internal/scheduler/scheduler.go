package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-widgets/internal/common"
)

// Refresher refreshes every stored widget.
type Refresher interface {
	RefreshAll(ctx context.Context) error
	SweepCaches() int
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// Scheduler periodically refreshes widgets and prunes expired cache entries.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	sweepers   []Sweeper
	interval   time.Duration
	jobTimeout time.Duration
	logger     *log.Logger
}

// New creates a new Scheduler. An interval of zero or less disables it.
func New(interval time.Duration, refresher Refresher, logger *log.Logger, sweepers ...Sweeper) *Scheduler {
	if logger == nil {
		logger = common.DiscardLogger()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		refresher:  refresher,
		sweepers:   sweepers,
		interval:   interval,
		jobTimeout: 30 * time.Second,
		logger:     logger.WithPrefix("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("refresh interval not set; background refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("started", "interval", s.interval)
	return nil
}

// RunOnce refreshes all widgets and sweeps the caches.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug("running widget refresh job")

	if err := s.refresher.RefreshAll(ctx); err != nil {
		s.logger.Warn("some widgets failed to refresh", "err", err)
	}

	swept := s.refresher.SweepCaches()
	for _, sw := range s.sweepers {
		swept += sw.Sweep()
	}
	s.logger.Debug("completed widget refresh job", "swept", swept)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
