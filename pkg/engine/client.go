package engine

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/events"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/ethpandaops/buildhistory/pkg/records"
	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/ethpandaops/buildhistory/pkg/sequence"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Client holds the Redis-backed components shared by the engine and the
// CLI commands that query or trigger builds without running a worker
type Client struct {
	Graph     *jobs.Graph
	Tracker   sequence.Tracker
	Store     records.Store
	Publisher events.Publisher
	Queue     *tasks.QueueManager
	Builds    *builds.Service

	redisClient  *redis.Client
	redisOptions *redis.Options
}

// NewClient builds the job graph and connects the stores for cfg
func NewClient(log logrus.FieldLogger, cfg *Config) (*Client, error) {
	graph := jobs.NewGraph()
	if err := graph.Build(cfg.Jobs); err != nil {
		return nil, fmt.Errorf("invalid jobs: %w", err)
	}

	redisClient, redisOptions, err := r.New(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	prefix := cfg.Redis.Prefix

	c := &Client{
		Graph:        graph,
		Tracker:      sequence.NewTracker(log, redisClient, prefix),
		Store:        records.NewStore(log, redisClient, prefix),
		Publisher:    events.NewPublisher(log, redisClient, prefix),
		Queue:        tasks.NewQueueManager(log, r.NewAsynqRedisOptions(redisOptions), prefix),
		redisClient:  redisClient,
		redisOptions: redisOptions,
	}

	c.Builds, err = builds.NewService(log, &cfg.History, graph, c.Queue, c.Store, c.Tracker, c.Publisher)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the queue and Redis connections
func (c *Client) Close() error {
	return errors.Join(c.Queue.Close(), c.redisClient.Close())
}
