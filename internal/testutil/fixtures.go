package testutil

import (
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
)

// BaseTime is the start time used by fixtures unless overridden
var BaseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // Shared fixture time

// RecordOption is a functional option for customizing test records.
type RecordOption func(*history.CompletedEntry)

// WithResult finishes the record with result.
func WithResult(result history.Result) RecordOption {
	return func(c *history.CompletedEntry) {
		c.Result = result.Ptr()
	}
}

// WithDuration sets how long the build ran.
func WithDuration(d time.Duration) RecordOption {
	return func(c *history.CompletedEntry) {
		c.Duration = d
	}
}

// WithDescription sets the record description.
func WithDescription(description string) RecordOption {
	return func(c *history.CompletedEntry) {
		c.Description = description
	}
}

// WithStartedAt overrides the start time.
func WithStartedAt(ts time.Time) RecordOption {
	return func(c *history.CompletedEntry) {
		c.StartedAt = ts
	}
}

// Record creates an execution record whose build number equals its sequence
// id and which started seq minutes after BaseTime. Without WithResult the
// record is still running.
func Record(job string, seq history.SequenceID, opts ...RecordOption) *history.CompletedEntry {
	record := &history.CompletedEntry{
		ID:          seq,
		RunID:       fmt.Sprintf("%s-run-%d", job, seq),
		Job:         job,
		Number:      int64(seq),
		DisplayName: fmt.Sprintf("#%d", seq),
		StartedAt:   BaseTime.Add(time.Duration(seq) * time.Minute),
	}

	for _, opt := range opts {
		opt(record)
	}

	return record
}

// Queued creates a queue item enqueued seq minutes after BaseTime.
func Queued(job string, seq history.SequenceID, cause string) *history.QueuedEntry {
	return &history.QueuedEntry{
		ID:         seq,
		Job:        job,
		Cause:      cause,
		TaskID:     fmt.Sprintf("%s:%d", job, seq),
		EnqueuedAt: BaseTime.Add(time.Duration(seq) * time.Minute),
	}
}

// Seq returns a pointer to id, for cursor arguments.
func Seq(id int64) *history.SequenceID {
	s := history.SequenceID(id)
	return &s
}
