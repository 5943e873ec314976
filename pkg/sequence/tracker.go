// Package sequence hands out the per-job identifiers that tie a queued build
// to the execution record it becomes.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethpandaops/buildhistory/pkg/history"
	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Key patterns, relative to the configured prefix:
//
//	sequence:{job}      last assigned sequence id
//	build-number:{job}  last assigned build number
const (
	sequenceKey    = "sequence:"
	buildNumberKey = "build-number:"
)

// ErrEmptyJob is returned when a counter is requested without a job name
var ErrEmptyJob = errors.New("job name is required")

// Tracker allocates monotonically increasing ids per job
type Tracker interface {
	// NextSequence assigns the id a build keeps from enqueue to completion
	NextSequence(ctx context.Context, job string) (history.SequenceID, error)

	// LastSequence returns the most recently assigned id, or
	// history.UnknownSequence when none was assigned yet
	LastSequence(ctx context.Context, job string) (history.SequenceID, error)

	// NextBuildNumber assigns the display number when a build starts running
	NextBuildNumber(ctx context.Context, job string) (int64, error)

	// Reset removes both counters for a job
	Reset(ctx context.Context, job string) error
}

type redisTracker struct {
	log    logrus.FieldLogger
	redis  *redis.Client
	prefix string
}

// NewTracker creates a Redis-backed tracker
func NewTracker(log logrus.FieldLogger, redisClient *redis.Client, prefix string) Tracker {
	return &redisTracker{
		log:    log.WithField("component", "sequence_tracker"),
		redis:  redisClient,
		prefix: prefix,
	}
}

func (t *redisTracker) key(kind, job string) string {
	return r.Prefixed(t.prefix, kind+job)
}

func (t *redisTracker) NextSequence(ctx context.Context, job string) (history.SequenceID, error) {
	if job == "" {
		return history.UnknownSequence, ErrEmptyJob
	}

	id, err := t.redis.Incr(ctx, t.key(sequenceKey, job)).Result()
	if err != nil {
		t.log.WithError(err).WithField("job", job).Error("Failed to allocate sequence id")
		return history.UnknownSequence, fmt.Errorf("failed to allocate sequence id for job %s: %w", job, err)
	}

	t.log.WithFields(logrus.Fields{
		"job":      job,
		"sequence": id,
	}).Debug("Allocated sequence id")

	return history.SequenceID(id), nil
}

func (t *redisTracker) LastSequence(ctx context.Context, job string) (history.SequenceID, error) {
	if job == "" {
		return history.UnknownSequence, ErrEmptyJob
	}

	val, err := t.redis.Get(ctx, t.key(sequenceKey, job)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return history.UnknownSequence, nil
		}

		return history.UnknownSequence, fmt.Errorf("failed to get last sequence id for job %s: %w", job, err)
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		t.log.WithError(err).
			WithFields(logrus.Fields{
				"job":       job,
				"raw_value": val,
			}).
			Error("Failed to parse sequence id")

		return history.UnknownSequence, fmt.Errorf("failed to parse sequence id for job %s: %w", job, err)
	}

	return history.SequenceID(id), nil
}

func (t *redisTracker) NextBuildNumber(ctx context.Context, job string) (int64, error) {
	if job == "" {
		return 0, ErrEmptyJob
	}

	number, err := t.redis.Incr(ctx, t.key(buildNumberKey, job)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate build number for job %s: %w", job, err)
	}

	return number, nil
}

func (t *redisTracker) Reset(ctx context.Context, job string) error {
	if job == "" {
		return ErrEmptyJob
	}

	if err := t.redis.Del(ctx, t.key(sequenceKey, job), t.key(buildNumberKey, job)).Err(); err != nil {
		return fmt.Errorf("failed to reset counters for job %s: %w", job, err)
	}

	t.log.WithField("job", job).Info("Reset sequence counters")

	return nil
}

// Ensure redisTracker implements Tracker
var _ Tracker = (*redisTracker)(nil)
