// Package records persists build execution records in Redis
package records

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

var (
	// ErrRecordNotFound is returned when no record exists for a run id
	ErrRecordNotFound = errors.New("execution record not found")
	// ErrInvalidRecord is returned when a record lacks its job or run id
	ErrInvalidRecord = errors.New("execution record requires job and run id")
)

// Key patterns, relative to the configured prefix:
//
//	records:{job}  ZSET of run ids scored by sequence id
//	record:{job}   HASH of run id to JSON record
const (
	indexKey = "records:"
	dataKey  = "record:"
)

// Store reads and writes execution records
type Store interface {
	// Save inserts or replaces a record
	Save(ctx context.Context, record *history.CompletedEntry) error
	// Get returns a single record
	Get(ctx context.Context, job, runID string) (*history.CompletedEntry, error)
	// List returns every retained record for a job, newest first
	List(ctx context.Context, job string) ([]*history.CompletedEntry, error)
	// Delete removes a record
	Delete(ctx context.Context, job, runID string) error
	// Trim purges the oldest records beyond keep and returns how many went
	Trim(ctx context.Context, job string, keep int) (int, error)
}

// storedRecord is the JSON layout in Redis. Records written before sequence
// tracking have no sequence field.
type storedRecord struct {
	Sequence    *int64          `json:"sequence,omitempty"`
	RunID       string          `json:"run_id"`
	Job         string          `json:"job"`
	Number      int64           `json:"number"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	DurationMS  int64           `json:"duration_ms"`
	Result      *history.Result `json:"result,omitempty"`
}

func toStored(record *history.CompletedEntry) storedRecord {
	stored := storedRecord{
		RunID:       record.RunID,
		Job:         record.Job,
		Number:      record.Number,
		DisplayName: record.DisplayName,
		Description: record.Description,
		StartedAt:   record.StartedAt.UTC(),
		DurationMS:  record.Duration.Milliseconds(),
		Result:      record.Result,
	}

	if record.ID.Known() {
		id := int64(record.ID)
		stored.Sequence = &id
	}

	return stored
}

func (s storedRecord) toEntry() *history.CompletedEntry {
	entry := &history.CompletedEntry{
		ID:          history.UnknownSequence,
		RunID:       s.RunID,
		Job:         s.Job,
		Number:      s.Number,
		DisplayName: s.DisplayName,
		Description: s.Description,
		StartedAt:   s.StartedAt,
		Duration:    time.Duration(s.DurationMS) * time.Millisecond,
		Result:      s.Result,
	}

	if s.Sequence != nil {
		entry.ID = history.SequenceID(*s.Sequence)
	}

	if entry.DisplayName == "" {
		entry.DisplayName = fmt.Sprintf("#%d", entry.Number)
	}

	return entry
}

// score places unknown sequences below every assigned id
func score(id history.SequenceID) float64 {
	if !id.Known() {
		return -1
	}

	return float64(id)
}

type redisStore struct {
	log    logrus.FieldLogger
	redis  *redis.Client
	prefix string
}

// NewStore creates a Redis-backed record store
func NewStore(log logrus.FieldLogger, redisClient *redis.Client, prefix string) Store {
	return &redisStore{
		log:    log.WithField("component", "record_store"),
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *redisStore) indexKey(job string) string {
	return r.Prefixed(s.prefix, indexKey+job)
}

func (s *redisStore) dataKey(job string) string {
	return r.Prefixed(s.prefix, dataKey+job)
}

func (s *redisStore) Save(ctx context.Context, record *history.CompletedEntry) error {
	if record.Job == "" || record.RunID == "" {
		return ErrInvalidRecord
	}

	data, err := json.Marshal(toStored(record))
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.indexKey(record.Job), redis.Z{Score: score(record.ID), Member: record.RunID})
		pipe.HSet(ctx, s.dataKey(record.Job), record.RunID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s for job %s: %w", record.RunID, record.Job, err)
	}

	s.log.WithFields(logrus.Fields{
		"job":      record.Job,
		"run_id":   record.RunID,
		"sequence": record.ID.String(),
		"running":  record.Running(),
	}).Debug("Saved execution record")

	return nil
}

func (s *redisStore) Get(ctx context.Context, job, runID string) (*history.CompletedEntry, error) {
	data, err := s.redis.HGet(ctx, s.dataKey(job), runID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record %s for job %s: %w", runID, job, err)
	}

	var stored storedRecord
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", runID, err)
	}

	return stored.toEntry(), nil
}

func (s *redisStore) List(ctx context.Context, job string) ([]*history.CompletedEntry, error) {
	runIDs, err := s.redis.ZRevRange(ctx, s.indexKey(job), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records for job %s: %w", job, err)
	}

	if len(runIDs) == 0 {
		return []*history.CompletedEntry{}, nil
	}

	values, err := s.redis.HMGet(ctx, s.dataKey(job), runIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records for job %s: %w", job, err)
	}

	records := make([]*history.CompletedEntry, 0, len(values))
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			// Index entry without data, left behind by an interrupted delete
			s.log.WithFields(logrus.Fields{
				"job":    job,
				"run_id": runIDs[i],
			}).Warn("Record missing from data hash")

			continue
		}

		var stored storedRecord
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			s.log.WithError(err).WithField("run_id", runIDs[i]).Warn("Skipping undecodable record")
			continue
		}

		records = append(records, stored.toEntry())
	}

	return records, nil
}

func (s *redisStore) Delete(ctx context.Context, job, runID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.indexKey(job), runID)
		pipe.HDel(ctx, s.dataKey(job), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s for job %s: %w", runID, job, err)
	}

	return nil
}

func (s *redisStore) Trim(ctx context.Context, job string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	// Lowest scores first; everything except the newest keep entries
	stale, err := s.redis.ZRange(ctx, s.indexKey(job), 0, int64(-keep-1)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find stale records for job %s: %w", job, err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	members := make([]interface{}, 0, len(stale))
	for _, runID := range stale {
		members = append(members, runID)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.indexKey(job), members...)
		pipe.HDel(ctx, s.dataKey(job), stale...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to trim records for job %s: %w", job, err)
	}

	s.log.WithFields(logrus.Fields{
		"job":    job,
		"purged": len(stale),
		"kept":   keep,
	}).Info("Purged old execution records")

	return len(stale), nil
}

// Ensure redisStore implements Store
var _ Store = (*redisStore)(nil)
