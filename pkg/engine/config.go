// Package engine wires the build history services together
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/buildhistory/pkg/api"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/frontend"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/ethpandaops/buildhistory/pkg/scheduler"
	"github.com/ethpandaops/buildhistory/pkg/worker"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoJobs is returned when no job is configured
	ErrNoJobs = errors.New("at least one job must be configured")
	// ErrInvalidQueueStatsInterval is returned for a non-positive stats interval
	ErrInvalidQueueStatsInterval = errors.New("queue stats interval must be positive")
)

// Config represents the complete engine configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9091"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	// QueueStatsInterval is how often queue depth gauges are refreshed
	QueueStatsInterval time.Duration `yaml:"queueStatsInterval" default:"15s"`

	// Dependencies
	Redis r.Config `yaml:"redis"`

	Scheduler scheduler.Config `yaml:"scheduler"`
	Worker    worker.Config    `yaml:"worker"`
	History   builds.Config    `yaml:"history"`

	API      api.Config      `yaml:"api"`
	Frontend frontend.Config `yaml:"frontend"`

	Jobs []jobs.Job `yaml:"jobs"`
}

// ParseConfig decodes YAML over the defaults. Job defaults are applied
// after decoding since the job list only exists then.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range config.Jobs {
		if err := defaults.Set(&config.Jobs[i]); err != nil {
			return nil, fmt.Errorf("failed to set defaults for job %d: %w", i, err)
		}
	}

	return config, nil
}

// Validate validates the configuration. Jobs are validated when the job
// graph is built.
func (c *Config) Validate() error {
	if err := c.Redis.Validate(); err != nil {
		return err
	}

	if c.QueueStatsInterval <= 0 {
		return ErrInvalidQueueStatsInterval
	}

	if c.Scheduler.Enabled {
		if err := c.Scheduler.Validate(); err != nil {
			return err
		}
	}

	if c.Worker.Enabled {
		if err := c.Worker.Validate(); err != nil {
			return err
		}
	}

	if err := c.History.Validate(); err != nil {
		return err
	}

	if err := c.API.Validate(); err != nil {
		return err
	}

	if err := c.Frontend.Validate(); err != nil {
		return err
	}

	if len(c.Jobs) == 0 {
		return ErrNoJobs
	}

	return nil
}
