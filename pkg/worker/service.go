package worker

import (
	"context"
	"fmt"
	"slices"
	"sync"

	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the worker service
type Service interface {
	// Start initializes and starts the worker service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker service
	Stop() error
}

// Router exposes the task handlers the worker serves
type Router interface {
	Routes() map[string]asynq.HandlerFunc
}

// service encapsulates the worker application logic
type service struct {
	config *Config
	log    logrus.FieldLogger

	done chan struct{}  // Signal shutdown
	wg   sync.WaitGroup // Track goroutines

	router   Router
	jobNames []string
	prefix   string
	redisOpt *redis.Options

	server *asynq.Server
}

// NewService creates a new worker service processing the queues of jobNames
func NewService(log logrus.FieldLogger, cfg *Config, router Router, jobNames []string, prefix string, redisOpt *redis.Options) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:      log.WithField("service", "worker"),
		config:   cfg,
		done:     make(chan struct{}),
		router:   router,
		jobNames: jobNames,
		prefix:   prefix,
		redisOpt: redisOpt,
	}, nil
}

// Start initializes and starts the worker service
func (s *service) Start(_ context.Context) error {
	queues := queueWeights(filteredJobs(s.jobNames, s.config.Jobs), s.prefix)
	if len(queues) == 0 {
		s.log.Warn("No job queues to process, worker idle")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"queues":      len(queues),
		"concurrency": s.config.Concurrency,
	}).Info("Starting worker service")

	srv := asynq.NewServer(r.NewAsynqRedisOptions(s.redisOpt), asynq.Config{
		Concurrency:     s.config.Concurrency,
		Queues:          queues,
		ShutdownTimeout: s.config.ShutdownTimeout,
		Logger:          s.log.WithField("component", "asynq"),
	})

	mux := asynq.NewServeMux()
	for taskType, handlerFunc := range s.router.Routes() {
		mux.HandleFunc(taskType, handlerFunc)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runErr := srv.Run(mux); runErr != nil {
			s.log.WithError(runErr).Error("Worker server stopped with error")
		}
	}()

	s.server = srv

	s.log.Info("Worker service started successfully")

	return nil
}

// Stop gracefully shuts down the worker service
func (s *service) Stop() error {
	close(s.done)

	if s.server != nil {
		s.server.Shutdown()
	}

	s.wg.Wait()

	s.log.Info("Worker service stopped successfully")

	return nil
}

// filteredJobs keeps the jobs named in allow, or every job when allow is empty
func filteredJobs(jobNames, allow []string) []string {
	if len(allow) == 0 {
		return jobNames
	}

	filtered := make([]string, 0, len(allow))
	for _, name := range jobNames {
		if slices.Contains(allow, name) {
			filtered = append(filtered, name)
		}
	}

	return filtered
}

func queueWeights(jobNames []string, prefix string) map[string]int {
	queues := make(map[string]int, len(jobNames))
	for _, name := range jobNames {
		queues[r.Prefixed(prefix, name)] = 10
	}

	return queues
}

// Ensure service implements the interface
var _ Service = (*service)(nil)

// Ensure the task handler can be served
var _ Router = (*tasks.TaskHandler)(nil)
