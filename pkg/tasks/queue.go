package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyQueued is returned when a build with the same sequence id is queued
var ErrAlreadyQueued = errors.New("build already queued")

// listPageSize bounds each inspector call while listing a queue
const listPageSize = 100

// QueueManager manages build queuing
type QueueManager struct {
	log       logrus.FieldLogger
	client    *asynq.Client
	inspector *asynq.Inspector
	prefix    string
}

// NewQueueManager creates a new queue manager
func NewQueueManager(log logrus.FieldLogger, redisOpt *asynq.RedisClientOpt, prefix string) *QueueManager {
	return &QueueManager{
		log:       log.WithField("component", "queue_manager"),
		client:    asynq.NewClient(*redisOpt),
		inspector: asynq.NewInspector(*redisOpt),
		prefix:    prefix,
	}
}

// QueueName returns the Asynq queue holding builds of job
func (q *QueueManager) QueueName(job string) string {
	return r.Prefixed(q.prefix, job)
}

// EnqueueBuild enqueues a build. Builds never retry: a failing command is a
// build result, not a task error.
func (q *QueueManager) EnqueueBuild(ctx context.Context, payload BuildPayload, timeout time.Duration, opts ...asynq.Option) (*history.QueuedEntry, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeBuild, data)

	defaultOpts := []asynq.Option{
		asynq.TaskID(payload.UniqueID()),
		asynq.Queue(q.QueueName(payload.Job)), // Job-specific queue
		asynq.MaxRetry(0),
	}
	if timeout > 0 {
		defaultOpts = append(defaultOpts, asynq.Timeout(timeout))
	}

	allOpts := defaultOpts
	allOpts = append(allOpts, opts...)

	info, err := q.client.EnqueueContext(ctx, task, allOpts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, payload.UniqueID())
		}
		return nil, fmt.Errorf("failed to enqueue build for job %s: %w", payload.Job, err)
	}

	q.log.WithFields(logrus.Fields{
		"job":      payload.Job,
		"sequence": payload.Sequence.String(),
		"queue":    info.Queue,
		"task_id":  info.ID,
	}).Debug("Enqueued build")

	return payload.QueuedEntry(info.ID), nil
}

// ListQueued returns every build of job still waiting to run: pending,
// scheduled and awaiting retry. A queue that was never used is empty.
func (q *QueueManager) ListQueued(job string) ([]*history.QueuedEntry, error) {
	queue := q.QueueName(job)

	listers := []func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		q.inspector.ListPendingTasks,
		q.inspector.ListScheduledTasks,
		q.inspector.ListRetryTasks,
	}

	var entries []*history.QueuedEntry
	for _, list := range listers {
		for page := 1; ; page++ {
			infos, err := list(queue, asynq.PageSize(listPageSize), asynq.Page(page))
			if err != nil {
				if errors.Is(err, asynq.ErrQueueNotFound) {
					return []*history.QueuedEntry{}, nil
				}
				return nil, fmt.Errorf("failed to list queue %s: %w", queue, err)
			}

			entries = append(entries, q.toQueuedEntries(infos)...)

			if len(infos) < listPageSize {
				break
			}
		}
	}

	if entries == nil {
		entries = []*history.QueuedEntry{}
	}

	return entries, nil
}

func (q *QueueManager) toQueuedEntries(infos []*asynq.TaskInfo) []*history.QueuedEntry {
	entries := make([]*history.QueuedEntry, 0, len(infos))
	for _, info := range infos {
		entry, err := QueuedEntryFromTask(info)
		if err != nil {
			q.log.WithError(err).WithField("task_id", info.ID).Warn("Skipping unreadable queued task")
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// QueuedEntryFromTask converts a waiting build task to its history entry
func QueuedEntryFromTask(info *asynq.TaskInfo) (*history.QueuedEntry, error) {
	if info.Type != TypeBuild {
		return nil, fmt.Errorf("unexpected task type %q", info.Type)
	}

	payload, err := ParsePayload(info.Payload)
	if err != nil {
		return nil, err
	}

	return payload.QueuedEntry(info.ID), nil
}

// CancelQueued removes a waiting build from its queue
func (q *QueueManager) CancelQueued(job string, sequence history.SequenceID) error {
	payload := BuildPayload{Job: job, Sequence: sequence}

	if err := q.inspector.DeleteTask(q.QueueName(job), payload.UniqueID()); err != nil {
		return fmt.Errorf("failed to cancel build %s: %w", payload.UniqueID(), err)
	}

	return nil
}

// GetQueueStats returns queue statistics for job
func (q *QueueManager) GetQueueStats(job string) (*asynq.QueueInfo, error) {
	info, err := q.inspector.GetQueueInfo(q.QueueName(job))
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return &asynq.QueueInfo{Queue: q.QueueName(job)}, nil
		}
		return nil, err
	}

	return info, nil
}

// Close closes the queue manager
func (q *QueueManager) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}
