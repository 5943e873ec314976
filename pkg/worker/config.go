package worker

import (
	"errors"
	"time"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrInvalidShutdownTimeout is returned when the shutdown timeout is negative
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must not be negative")
)

// Config contains worker-specific settings
type Config struct {
	Enabled     bool `yaml:"enabled" default:"true"`
	Concurrency int  `yaml:"concurrency" default:"4"`
	// Jobs limits the worker to the named jobs; empty processes every job
	Jobs            []string      `yaml:"jobs,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"30s"`
	// OutputTailBytes is how much of a failed build's output is logged
	OutputTailBytes int `yaml:"outputTailBytes" default:"4096"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ShutdownTimeout < 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}
