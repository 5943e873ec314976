// Package history computes bounded, bidirectionally navigable pages of build
// history from queued items and execution records.
package history

import (
	"math"
	"strconv"
	"time"
)

// SequenceID is assigned once when a build enters the queue and is carried
// unchanged onto the execution record it spawns.
type SequenceID int64

// UnknownSequence marks records that predate sequence tracking. It sorts
// below every assigned id.
const UnknownSequence SequenceID = math.MinInt64

// Known reports whether the id was actually assigned.
func (s SequenceID) Known() bool {
	return s != UnknownSequence
}

func (s SequenceID) String() string {
	if !s.Known() {
		return "unknown"
	}

	return strconv.FormatInt(int64(s), 10)
}

// Kind identifies which variant an Entry is.
type Kind int

const (
	// KindQueued is a build still waiting in the queue
	KindQueued Kind = iota
	// KindCompleted is a running or finished execution record
	KindCompleted
)

func (k Kind) String() string {
	switch k {
	case KindQueued:
		return "queued"
	case KindCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Entry is one row of build history. The only implementations are
// *QueuedEntry and *CompletedEntry.
type Entry interface {
	// Sequence returns the ordering key shared by both variants
	Sequence() SequenceID
	// Kind returns the variant tag
	Kind() Kind
	// Timestamp returns when the entry was enqueued or started
	Timestamp() time.Time

	sealed()
}

// QueuedEntry is a build waiting to execute.
type QueuedEntry struct {
	ID         SequenceID `json:"sequence"`
	Job        string     `json:"job"`
	Cause      string     `json:"cause,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// Sequence implements Entry
func (q *QueuedEntry) Sequence() SequenceID { return q.ID }

// Kind implements Entry
func (q *QueuedEntry) Kind() Kind { return KindQueued }

// Timestamp implements Entry
func (q *QueuedEntry) Timestamp() time.Time { return q.EnqueuedAt }

func (q *QueuedEntry) sealed() {}

// CompletedEntry is an execution record. A nil Result means the build is
// still running.
type CompletedEntry struct {
	ID          SequenceID    `json:"sequence"`
	RunID       string        `json:"run_id"`
	Job         string        `json:"job"`
	Number      int64         `json:"number"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Result      *Result       `json:"result,omitempty"`
}

// Sequence implements Entry
func (c *CompletedEntry) Sequence() SequenceID { return c.ID }

// Kind implements Entry
func (c *CompletedEntry) Kind() Kind { return KindCompleted }

// Timestamp implements Entry
func (c *CompletedEntry) Timestamp() time.Time { return c.StartedAt }

// Running reports whether the execution has not produced a result yet.
func (c *CompletedEntry) Running() bool { return c.Result == nil }

func (c *CompletedEntry) sealed() {}

// Ensure both variants implement Entry at compile time
var (
	_ Entry = (*QueuedEntry)(nil)
	_ Entry = (*CompletedEntry)(nil)
)
