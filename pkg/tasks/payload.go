// Package tasks queues builds on Asynq and runs them on workers
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
)

// TypeBuild is the task type for job builds
const TypeBuild = "build:run"

// Trigger kinds, recorded on the payload and in metrics
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerUpstream = "upstream"
)

var (
	// ErrInvalidPayload is returned when a payload has no job or sequence id
	ErrInvalidPayload = errors.New("build payload requires job and sequence id")
)

// BuildPayload is the task body of a queued build
type BuildPayload struct {
	Job        string             `json:"job"`
	Sequence   history.SequenceID `json:"sequence"`
	Cause      string             `json:"cause,omitempty"`
	Trigger    string             `json:"trigger,omitempty"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

// UniqueID returns the task id, unique per job and sequence id
func (p BuildPayload) UniqueID() string {
	return fmt.Sprintf("%s:%d", p.Job, int64(p.Sequence))
}

// Validate checks the payload carries an identity
func (p BuildPayload) Validate() error {
	if p.Job == "" || !p.Sequence.Known() || p.Sequence < 1 {
		return ErrInvalidPayload
	}

	return nil
}

// QueuedEntry converts the payload to the history entry it shows as while
// waiting
func (p BuildPayload) QueuedEntry(taskID string) *history.QueuedEntry {
	return &history.QueuedEntry{
		ID:         p.Sequence,
		Job:        p.Job,
		Cause:      p.Cause,
		TaskID:     taskID,
		EnqueuedAt: p.EnqueuedAt,
	}
}

// ParsePayload decodes and validates a task body
func ParsePayload(data []byte) (BuildPayload, error) {
	var payload BuildPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return BuildPayload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := payload.Validate(); err != nil {
		return BuildPayload{}, err
	}

	return payload, nil
}
