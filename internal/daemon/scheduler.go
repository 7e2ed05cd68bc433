package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jdries/docpages/internal/logfields"
)

// Scheduler wraps gocron for periodic publish runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	enqueuer  interface {
		Enqueue(job *Job) error
	}
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// SetEnqueuer injects the queue the scheduler feeds.
func (s *Scheduler) SetEnqueuer(e interface{ Enqueue(job *Job) error }) { s.enqueuer = e }

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// SchedulePeriodicPublish registers a recurring publish at the given
// interval. Returns the gocron job ID for later management.
func (s *Scheduler) SchedulePeriodicPublish(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.executePublish),
		gocron.WithName("scheduled-publish"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic publish job: %w", err)
	}
	return job.ID().String(), nil
}

// executePublish is called by gocron to enqueue a scheduled publish.
func (s *Scheduler) executePublish() {
	if s.enqueuer == nil {
		slog.Error("Scheduler enqueuer not set")
		return
	}

	job := NewJob(TriggerScheduled)
	slog.Info("Enqueuing scheduled publish", logfields.JobID(job.ID))
	if err := s.enqueuer.Enqueue(job); err != nil {
		slog.Error("Failed to enqueue scheduled publish", logfields.JobID(job.ID), logfields.Error(err))
	}
}
