// Package events publishes run lifecycle notifications over Redis pub/sub
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channel = "events"

// TypeRunStateChange is the only event type published
const TypeRunStateChange = "runStateChange"

// RunStatus is the lifecycle stage a run moved into
type RunStatus string

// Run statuses
const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
)

// ErrSubscriberClosed is returned by Receive after Close
var ErrSubscriberClosed = errors.New("subscriber closed")

// Event is a run state change
type Event struct {
	Type      string             `json:"type"`
	Job       string             `json:"job"`
	Sequence  history.SequenceID `json:"sequence"`
	RunID     string             `json:"runId,omitempty"`
	Number    int64              `json:"number,omitempty"`
	RunStatus RunStatus          `json:"runStatus"`
	Result    *history.Result    `json:"result,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Queued builds the event for a newly enqueued build
func Queued(entry *history.QueuedEntry) Event {
	return Event{
		Type:      TypeRunStateChange,
		Job:       entry.Job,
		Sequence:  entry.ID,
		RunStatus: RunQueued,
		Timestamp: entry.EnqueuedAt,
	}
}

// Started builds the event for a record that began running
func Started(record *history.CompletedEntry) Event {
	return fromRecord(record, RunRunning, record.StartedAt)
}

// Completed builds the event for a finished record
func Completed(record *history.CompletedEntry) Event {
	return fromRecord(record, RunCompleted, record.StartedAt.Add(record.Duration))
}

func fromRecord(record *history.CompletedEntry, status RunStatus, ts time.Time) Event {
	return Event{
		Type:      TypeRunStateChange,
		Job:       record.Job,
		Sequence:  record.ID,
		RunID:     record.RunID,
		Number:    record.Number,
		RunStatus: status,
		Result:    record.Result,
		Timestamp: ts,
	}
}

// Publisher sends events to every subscriber
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type redisPublisher struct {
	log     logrus.FieldLogger
	redis   *redis.Client
	channel string
}

// NewPublisher creates a Redis pub/sub publisher
func NewPublisher(log logrus.FieldLogger, redisClient *redis.Client, prefix string) Publisher {
	return &redisPublisher{
		log:     log.WithField("component", "event_publisher"),
		redis:   redisClient,
		channel: r.Prefixed(prefix, channel),
	}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	receivers, err := p.redis.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s event for job %s: %w", event.RunStatus, event.Job, err)
	}

	p.log.WithFields(logrus.Fields{
		"job":        event.Job,
		"sequence":   event.Sequence.String(),
		"run_status": event.RunStatus,
		"receivers":  receivers,
	}).Debug("Published run state change")

	return nil
}

// Subscriber receives events published on the prefix channel
type Subscriber struct {
	log    logrus.FieldLogger
	pubsub *redis.PubSub
}

// Subscribe opens a subscription and waits for Redis to confirm it
func Subscribe(ctx context.Context, log logrus.FieldLogger, redisClient *redis.Client, prefix string) (*Subscriber, error) {
	pubsub := redisClient.Subscribe(ctx, r.Prefixed(prefix, channel))

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	return &Subscriber{
		log:    log.WithField("component", "event_subscriber"),
		pubsub: pubsub,
	}, nil
}

// Receive blocks until the next decodable event arrives
func (s *Subscriber) Receive(ctx context.Context) (Event, error) {
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, redis.ErrClosed) {
				return Event{}, ErrSubscriberClosed
			}
			return Event{}, err
		}

		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.log.WithError(err).Warn("Dropping undecodable event")
			continue
		}

		return event, nil
	}
}

// Close ends the subscription
func (s *Subscriber) Close() error {
	return s.pubsub.Close()
}
