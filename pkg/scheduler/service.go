package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/ethpandaops/buildhistory/pkg/observability"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ScheduledCause is the cause recorded on builds started by a schedule
const ScheduledCause = "Started by timer"

var (
	// ErrScheduleRegistrationFailed is returned when one or more schedules fail to register
	ErrScheduleRegistrationFailed = errors.New("failed to register schedules")
)

// Service defines the public interface for the scheduler
type Service interface {
	// Start registers every schedule and starts the cron runner
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler service
	Stop() error
}

// Triggerer queues a new build
type Triggerer interface {
	Trigger(ctx context.Context, job, cause, trigger string) (*history.QueuedEntry, error)
}

// service fires builds for jobs with a schedule
type service struct {
	log logrus.FieldLogger
	cfg *Config

	done chan struct{} // Signal shutdown

	jobs      []jobs.Job
	triggerer Triggerer
	elector   LeaderElector

	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewService creates a new scheduler service for the scheduled jobs
func NewService(log logrus.FieldLogger, cfg *Config, scheduled []jobs.Job, triggerer Triggerer, elector LeaderElector) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, err
	}

	log = log.WithField("service", "scheduler")

	return &service{
		log:       log,
		cfg:       cfg,
		done:      make(chan struct{}),
		jobs:      scheduled,
		triggerer: triggerer,
		elector:   elector,
		cron: cron.New(
			cron.WithParser(jobs.ScheduleParser),
			cron.WithLocation(location),
			cron.WithLogger(cron.PrintfLogger(log)),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		entries: make(map[string]cron.EntryID, len(scheduled)),
	}, nil
}

// Start registers every schedule and starts the cron runner
func (s *service) Start(ctx context.Context) error {
	if err := s.register(); err != nil {
		return err
	}

	if s.elector != nil {
		if err := s.elector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start leader election: %w", err)
		}
	}

	s.cron.Start()

	s.log.WithField("schedules", len(s.entries)).Info("Scheduler service started")

	return nil
}

func (s *service) register() error {
	var failed int

	for _, job := range s.jobs {
		id, err := s.cron.AddFunc(job.Schedule, s.fireFunc(job.Name))
		if err != nil {
			failed++
			s.log.WithError(err).WithField("job", job.Name).Error("Failed to register schedule")
			observability.SchedulerActive.WithLabelValues(job.Name).Set(0)
			continue
		}

		s.entries[job.Name] = id
		observability.SchedulerActive.WithLabelValues(job.Name).Set(1)

		s.log.WithFields(logrus.Fields{
			"job":      job.Name,
			"schedule": job.Schedule,
			"next":     s.cron.Entry(id).Next,
		}).Debug("Registered schedule")
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScheduleRegistrationFailed, failed, len(s.jobs))
	}

	return nil
}

func (s *service) fireFunc(job string) func() {
	return func() {
		s.fire(job)
	}
}

// fire enqueues a scheduled build when this instance is the leader
func (s *service) fire(job string) {
	select {
	case <-s.done:
		return
	default:
	}

	if s.elector != nil && !s.elector.IsLeader() {
		s.log.WithField("job", job).Debug("Not leader, skipping scheduled build")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TriggerTimeout)
	defer cancel()

	entry, err := s.triggerer.Trigger(ctx, job, ScheduledCause, tasks.TriggerSchedule)
	if err != nil {
		s.log.WithError(err).WithField("job", job).Error("Failed to trigger scheduled build")
		observability.RecordError("scheduler", "trigger_error")
		return
	}

	s.log.WithFields(logrus.Fields{
		"job":      job,
		"sequence": entry.ID.String(),
	}).Info("Triggered scheduled build")
}

// Stop gracefully shuts down the scheduler service
func (s *service) Stop() error {
	close(s.done)

	// Wait for running triggers to return
	<-s.cron.Stop().Done()

	if s.elector != nil {
		if err := s.elector.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop leader elector")
		}
	}

	for job := range s.entries {
		observability.SchedulerActive.WithLabelValues(job).Set(0)
	}

	s.log.Info("Scheduler service stopped")

	return nil
}

// Ensure service implements the interface
var _ Service = (*service)(nil)
