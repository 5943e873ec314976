package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"sync"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/api"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/events"
	"github.com/ethpandaops/buildhistory/pkg/frontend"
	"github.com/ethpandaops/buildhistory/pkg/observability"
	"github.com/ethpandaops/buildhistory/pkg/scheduler"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/ethpandaops/buildhistory/pkg/worker"
	"github.com/sirupsen/logrus"
)

// Service runs every build history component of one instance
type Service struct {
	config *Config
	log    *logrus.Logger

	client    *Client
	scheduler scheduler.Service
	worker    worker.Service
	api       api.Service

	// Servers
	healthServer *http.Server
	pprofServer  *http.Server

	subscriber *events.Subscriber

	done chan struct{}
	wg   sync.WaitGroup
}

// NewService builds the job graph and wires the services for cfg
func NewService(log *logrus.Logger, cfg *Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := NewClient(log, cfg)
	if err != nil {
		return nil, err
	}

	buildService := client.Builds
	prefix := cfg.Redis.Prefix

	s := &Service{
		config: cfg,
		log:    log,
		client: client,
		done:   make(chan struct{}),
	}

	if cfg.Worker.Enabled {
		executor := worker.NewCommandExecutor(log, cfg.Worker.OutputTailBytes)
		handler := tasks.NewTaskHandler(log, client.Graph, client.Tracker, client.Store, client.Publisher, executor, buildService, cfg.History.Retention)

		s.worker, err = worker.NewService(log, &cfg.Worker, handler, client.Graph.Names(), prefix, client.redisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to create worker service: %w", err)
		}
	}

	if cfg.Scheduler.Enabled {
		elector := scheduler.NewLeaderElector(log, client.redisOptions, prefix)

		s.scheduler, err = scheduler.NewService(log, &cfg.Scheduler, client.Graph.Scheduled(), buildService, elector)
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler service: %w", err)
		}
	}

	var frontendHandler http.Handler
	if cfg.Frontend.Enabled {
		frontendHandler, err = frontend.NewHandler(&cfg.Frontend, buildService, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create frontend handler: %w", err)
		}
	}

	s.api = api.NewService(&cfg.API, buildService, frontendHandler, log)

	return s, nil
}

// Builds returns the history and trigger service
func (a *Service) Builds() *builds.Service {
	return a.client.Builds
}

// Start starts every enabled service
func (a *Service) Start() error {
	a.log.WithField("jobs", len(a.client.Graph.Names())).Info("Starting build history engine...")

	ctx := context.Background()

	if err := a.client.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	observability.StartMetricsServer(a.log, a.config.MetricsAddr)

	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	if err := a.startEventWatcher(ctx); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.pollQueueStats()

	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	if err := a.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API and frontend service: %w", err)
	}

	a.log.Info("Build history engine started successfully")

	return nil
}

// Stop gracefully shuts down every service
func (a *Service) Stop() error {
	a.log.Info("Shutting down build history engine...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopService := func(name string, stopFunc func() error) {
		if stopFunc == nil {
			return
		}
		if err := stopFunc(); err != nil {
			a.log.WithError(err).Errorf("Failed to stop %s", name)
		}
	}

	// 1. Stop scheduler first (stop creating new builds)
	if a.scheduler != nil {
		stopService("scheduler service", a.scheduler.Stop)
	}

	// 2. Stop API/frontend (stop manual triggers)
	stopService("API and frontend service", a.api.Stop)

	// 3. Stop worker (finish in-flight builds)
	if a.worker != nil {
		stopService("worker service", a.worker.Stop)
	}

	// 4. Stop background loops
	close(a.done)
	if a.subscriber != nil {
		stopService("event subscriber", a.subscriber.Close)
	}
	a.wg.Wait()

	// 5. Close Redis (now safe, nothing is using it)
	stopService("Redis clients", a.client.Close)

	if a.healthServer != nil {
		stopService("health check server", func() error { return a.healthServer.Shutdown(ctx) })
	}
	if a.pprofServer != nil {
		stopService("pprof server", func() error { return a.pprofServer.Shutdown(ctx) })
	}
	stopService("metrics server", func() error { return observability.StopMetricsServer(ctx) })

	return nil
}

// startEventWatcher counts run state changes published by every instance
func (a *Service) startEventWatcher(ctx context.Context) error {
	subscriber, err := events.Subscribe(ctx, a.log, a.client.redisClient, a.config.Redis.Prefix)
	if err != nil {
		return err
	}

	a.subscriber = subscriber

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		log := a.log.WithField("component", "event_watcher")

		for {
			event, err := subscriber.Receive(context.Background())
			if err != nil {
				if errors.Is(err, events.ErrSubscriberClosed) {
					return
				}

				select {
				case <-a.done:
					return
				default:
				}

				log.WithError(err).Warn("Failed to receive event")
				observability.RecordError("engine", "event_receive_error")

				select {
				case <-a.done:
					return
				case <-time.After(time.Second):
				}

				continue
			}

			observability.RecordEvent(event.Job, string(event.RunStatus))

			log.WithFields(logrus.Fields{
				"job":        event.Job,
				"sequence":   event.Sequence.String(),
				"run_status": event.RunStatus,
			}).Debug("Run state changed")
		}
	}()

	return nil
}

// pollQueueStats refreshes the queue depth gauges of every job
func (a *Service) pollQueueStats() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.QueueStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			for _, job := range a.client.Graph.Names() {
				info, err := a.client.Queue.GetQueueStats(job)
				if err != nil {
					a.log.WithError(err).WithField("job", job).Debug("Failed to read queue stats")
					continue
				}

				observability.RecordQueueDepth(a.client.Queue.QueueName(job), info.Pending, info.Active, info.Scheduled, info.Retry)
			}
		}
	}
}

func (a *Service) startHealthCheck() {
	a.log.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := a.client.redisClient.Ping(req.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Service) startPProf() {
	a.log.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Pprof server failed")
		}
	}()
}
