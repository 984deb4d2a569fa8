package janitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the janitor on a cron spec with seconds
type Scheduler struct {
	janitor *Janitor
	cron    *cron.Cron
}

// NewScheduler creates a new Scheduler
func NewScheduler(j *Janitor) *Scheduler {
	return &Scheduler{janitor: j, cron: cron.New(cron.WithSeconds())}
}

// Start registers the sweep under spec and starts the cron loop
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.janitor.Sweep(ctx); err != nil {
			slog.Error("temp sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep %q: %w", spec, err)
	}

	slog.Info("janitor scheduler started", "schedule", spec)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
