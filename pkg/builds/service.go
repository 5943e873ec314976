// Package builds answers build history queries and triggers new builds
package builds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/events"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/ethpandaops/buildhistory/pkg/observability"
	"github.com/ethpandaops/buildhistory/pkg/search"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrJobNotFound is returned for a job that is not configured
var ErrJobNotFound = jobs.ErrJobNotFound

// Navigation labels for metrics and logs
const (
	NavigationLatest = "latest"
	NavigationNewer  = "newer"
	NavigationOlder  = "older"
)

// JobSource resolves configured jobs
type JobSource interface {
	Job(name string) (jobs.Job, bool)
	Jobs() []jobs.Job
}

// Queue lists and enqueues builds
type Queue interface {
	ListQueued(job string) ([]*history.QueuedEntry, error)
	EnqueueBuild(ctx context.Context, payload tasks.BuildPayload, timeout time.Duration, opts ...asynq.Option) (*history.QueuedEntry, error)
}

// RecordLister returns the execution records of a job
type RecordLister interface {
	List(ctx context.Context, job string) ([]*history.CompletedEntry, error)
}

// SequenceAllocator hands out sequence ids
type SequenceAllocator interface {
	NextSequence(ctx context.Context, job string) (history.SequenceID, error)
}

// Query selects a page of history
type Query struct {
	Search    string
	NewerThan *history.SequenceID
	OlderThan *history.SequenceID
	Limit     int
}

// Navigation names the direction a query pages in
func (q Query) Navigation() string {
	switch {
	case q.NewerThan != nil:
		return NavigationNewer
	case q.OlderThan != nil:
		return NavigationOlder
	default:
		return NavigationLatest
	}
}

// Service answers history queries and triggers builds
type Service struct {
	log       logrus.FieldLogger
	cfg       *Config
	jobs      JobSource
	queue     Queue
	records   RecordLister
	sequences SequenceAllocator
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a new builds service
func NewService(
	log logrus.FieldLogger,
	cfg *Config,
	jobSource JobSource,
	queue Queue,
	recordLister RecordLister,
	sequences SequenceAllocator,
	publisher events.Publisher,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history configuration: %w", err)
	}

	return &Service{
		log:       log.WithField("service", "builds"),
		cfg:       cfg,
		jobs:      jobSource,
		queue:     queue,
		records:   recordLister,
		sequences: sequences,
		publisher: publisher,
		now:       time.Now,
	}, nil
}

// Jobs returns every configured job
func (s *Service) Jobs() []jobs.Job {
	return s.jobs.Jobs()
}

// Job returns one configured job
func (s *Service) Job(name string) (jobs.Job, error) {
	job, ok := s.jobs.Job(name)
	if !ok {
		return jobs.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return job, nil
}

// History gathers the queued builds and execution records of a job,
// narrows them by the search query and computes the requested page.
func (s *Service) History(ctx context.Context, job string, query Query) (*history.Page, error) {
	if _, err := s.Job(job); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"job":        job,
		"navigation": query.Navigation(),
	})

	if query.NewerThan != nil && query.OlderThan != nil {
		log.WithFields(logrus.Fields{
			"newer_than": query.NewerThan.String(),
			"older_than": query.OlderThan.String(),
		}).Warn("Both history cursors given, ignoring older-than")
	}

	candidates, err := s.gather(ctx, job)
	if err != nil {
		observability.RecordError("builds", "gather_error")
		return nil, err
	}

	candidates = search.Filter(candidates, search.BuildPredicates(query.Search))

	page := history.ComputePage(candidates, s.cfg.Limit(query.Limit), query.NewerThan, query.OlderThan)

	observability.RecordHistoryPage(job, query.Navigation(), len(candidates), page.Len())

	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"entries":    page.Len(),
		"has_newer":  page.HasNewerPage,
		"has_older":  page.HasOlderPage,
	}).Debug("Computed history page")

	return page, nil
}

// gather reads the queue and the record store concurrently
func (s *Service) gather(ctx context.Context, job string) ([]history.Entry, error) {
	var (
		queued    []*history.QueuedEntry
		completed []*history.CompletedEntry
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		queued, err = s.queue.ListQueued(job)
		if err != nil {
			return fmt.Errorf("failed to list queued builds: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		completed, err = s.records.List(gctx, job)
		if err != nil {
			return fmt.Errorf("failed to list execution records: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]history.Entry, 0, len(queued)+len(completed))
	for _, entry := range queued {
		entries = append(entries, entry)
	}
	for _, entry := range completed {
		entries = append(entries, entry)
	}

	return entries, nil
}

// Trigger allocates a sequence id for a new build of job and enqueues it
func (s *Service) Trigger(ctx context.Context, job, cause, trigger string) (*history.QueuedEntry, error) {
	definition, err := s.Job(job)
	if err != nil {
		return nil, err
	}

	if trigger == "" {
		trigger = tasks.TriggerManual
	}

	id, err := s.sequences.NextSequence(ctx, job)
	if err != nil {
		return nil, err
	}

	entry, err := s.queue.EnqueueBuild(ctx, tasks.BuildPayload{
		Job:        job,
		Sequence:   id,
		Cause:      cause,
		Trigger:    trigger,
		EnqueuedAt: s.now().UTC(),
	}, definition.Timeout)
	if err != nil {
		observability.RecordError("builds", "enqueue_error")
		return nil, err
	}

	observability.RecordBuildEnqueued(job, trigger)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.Queued(entry)); err != nil {
			s.log.WithError(err).WithField("job", job).Warn("Failed to publish run state change")
		}
	}

	s.log.WithFields(logrus.Fields{
		"job":      job,
		"sequence": id.String(),
		"trigger":  trigger,
	}).Info("Build queued")

	return entry, nil
}

// IsNotFound reports whether err means the job is not configured
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
