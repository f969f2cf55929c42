package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/i474232898/weather-widget/internal/weather"
)

// Poster accepts events for the widget's event loop.
type Poster interface {
	Post(ctx context.Context, ev weather.Event) error
}

// Scheduler periodically asks the widget to reload the displayed forecast.
// The refresh is ignored by the widget unless a forecast is on screen, so it
// never interrupts typing, an error banner or a fetch in progress.
type Scheduler struct {
	scheduler *gocron.Scheduler
	widget    Poster
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. An interval <= 0 disables it.
func New(interval time.Duration, widget Poster, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		widget:    widget,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("refresh scheduled", "interval", s.interval)
	return nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.widget.Post(ctx, weather.KeyEvent{Kind: weather.KeyRefresh}); err != nil {
		s.logger.Warn("failed to post refresh", "error", err)
		return
	}
	s.logger.Debug("refresh posted")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
