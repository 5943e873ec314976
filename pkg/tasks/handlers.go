package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/events"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/ethpandaops/buildhistory/pkg/observability"
	"github.com/ethpandaops/buildhistory/pkg/records"
	"github.com/ethpandaops/buildhistory/pkg/sequence"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

var (
	// ErrJobNotConfigured is returned when a queued build names an unknown job
	ErrJobNotConfigured = errors.New("job is not configured")
)

// JobSource resolves job definitions and their downstream triggers
type JobSource interface {
	Job(name string) (jobs.Job, bool)
	Downstream(name string) []string
}

// Executor runs a build and reports its result. Cancellation of ctx must
// yield history.ResultAborted.
type Executor interface {
	Execute(ctx context.Context, job jobs.Job, run *history.CompletedEntry) history.Result
}

// Triggerer queues a new build
type Triggerer interface {
	Trigger(ctx context.Context, job, cause, trigger string) (*history.QueuedEntry, error)
}

// getWorkerID returns the worker ID based on hostname
func getWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "worker-unknown"
	}

	return hostname
}

// TaskHandler turns a queued build into an execution record
type TaskHandler struct {
	log       logrus.FieldLogger
	jobs      JobSource
	tracker   sequence.Tracker
	store     records.Store
	publisher events.Publisher
	executor  Executor
	triggerer Triggerer
	retention int
	workerID  string
	now       func() time.Time
}

// NewTaskHandler creates a new task handler. retention is the number of
// records kept per job; 0 keeps everything.
func NewTaskHandler(
	log logrus.FieldLogger,
	jobSource JobSource,
	tracker sequence.Tracker,
	store records.Store,
	publisher events.Publisher,
	executor Executor,
	triggerer Triggerer,
	retention int,
) *TaskHandler {
	return &TaskHandler{
		log:       log.WithField("component", "task-handler"),
		jobs:      jobSource,
		tracker:   tracker,
		store:     store,
		publisher: publisher,
		executor:  executor,
		triggerer: triggerer,
		retention: retention,
		workerID:  getWorkerID(),
		now:       time.Now,
	}
}

// HandleBuild handles build tasks
func (h *TaskHandler) HandleBuild(ctx context.Context, t *asynq.Task) error {
	payload, err := ParsePayload(t.Payload())
	if err != nil {
		observability.RecordError("task-handler", "unmarshal_error")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	job, exists := h.jobs.Job(payload.Job)
	if !exists {
		observability.RecordError("task-handler", "job_not_found")
		return fmt.Errorf("%w: %s: %w", ErrJobNotConfigured, payload.Job, asynq.SkipRetry)
	}

	run, err := h.start(ctx, payload)
	if err != nil {
		return err
	}

	observability.RecordBuildStart(job.Name, h.workerID)

	result := h.executor.Execute(ctx, job, run)

	// The task context is cancelled on abort; the record must still land
	finishCtx := context.WithoutCancel(ctx)

	err = h.finish(finishCtx, run, result)
	observability.RecordBuildComplete(job.Name, h.workerID, string(result), run.Duration.Seconds())
	if err != nil {
		return err
	}

	h.purge(finishCtx, job.Name)

	if result == history.ResultSuccess {
		h.triggerDownstream(finishCtx, run)
	}

	return nil
}

// start allocates the build number and saves the running record under the
// sequence id the build was queued with
func (h *TaskHandler) start(ctx context.Context, payload BuildPayload) (*history.CompletedEntry, error) {
	number, err := h.tracker.NextBuildNumber(ctx, payload.Job)
	if err != nil {
		observability.RecordError("task-handler", "build_number_error")
		return nil, fmt.Errorf("failed to allocate build number: %w", err)
	}

	run := &history.CompletedEntry{
		ID:          payload.Sequence,
		RunID:       uuid.NewString(),
		Job:         payload.Job,
		Number:      number,
		DisplayName: fmt.Sprintf("#%d", number),
		Description: payload.Cause,
		StartedAt:   h.now().UTC(),
	}

	if err := h.store.Save(ctx, run); err != nil {
		observability.RecordError("task-handler", "record_save_error")
		return nil, fmt.Errorf("failed to save running record: %w", err)
	}

	h.publish(ctx, events.Started(run))

	h.log.WithFields(logrus.Fields{
		"job":      run.Job,
		"sequence": run.ID.String(),
		"number":   run.Number,
		"run_id":   run.RunID,
	}).Info("Build started")

	return run, nil
}

func (h *TaskHandler) finish(ctx context.Context, run *history.CompletedEntry, result history.Result) error {
	run.Duration = h.now().UTC().Sub(run.StartedAt)
	run.Result = result.Ptr()

	if err := h.store.Save(ctx, run); err != nil {
		observability.RecordError("task-handler", "record_save_error")
		return fmt.Errorf("failed to save completed record: %w", err)
	}

	h.publish(ctx, events.Completed(run))

	h.log.WithFields(logrus.Fields{
		"job":      run.Job,
		"sequence": run.ID.String(),
		"number":   run.Number,
		"result":   result,
		"duration": run.Duration,
	}).Info("Build completed")

	return nil
}

func (h *TaskHandler) purge(ctx context.Context, job string) {
	if h.retention <= 0 {
		return
	}

	purged, err := h.store.Trim(ctx, job, h.retention)
	if err != nil {
		h.log.WithError(err).WithField("job", job).Warn("Failed to purge old records")
		observability.RecordError("task-handler", "purge_error")
		return
	}

	if purged > 0 {
		observability.RecordRecordsPurged(job, purged)
	}
}

func (h *TaskHandler) triggerDownstream(ctx context.Context, run *history.CompletedEntry) {
	if h.triggerer == nil {
		return
	}

	cause := fmt.Sprintf("Started by upstream job %s build number %d", run.Job, run.Number)

	for _, downstream := range h.jobs.Downstream(run.Job) {
		if _, err := h.triggerer.Trigger(ctx, downstream, cause, TriggerUpstream); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"job":        run.Job,
				"downstream": downstream,
			}).Error("Failed to trigger downstream job")
			observability.RecordError("task-handler", "downstream_trigger_error")
		}
	}
}

func (h *TaskHandler) publish(ctx context.Context, event events.Event) {
	if h.publisher == nil {
		return
	}

	if err := h.publisher.Publish(ctx, event); err != nil {
		h.log.WithError(err).WithField("job", event.Job).Warn("Failed to publish run state change")
	}
}

// Routes returns the task handler routes for Asynq
func (h *TaskHandler) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeBuild: h.HandleBuild,
	}
}
