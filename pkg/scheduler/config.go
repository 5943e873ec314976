// Package scheduler triggers builds on their cron schedules
package scheduler

import (
	"errors"
	"time"
)

var (
	// ErrInvalidLocation is returned when the time zone cannot be loaded
	ErrInvalidLocation = errors.New("invalid scheduler time zone")
)

// Config defines scheduler configuration
type Config struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// Location is the IANA time zone schedules are evaluated in
	Location string `yaml:"location" default:"UTC"`
	// TriggerTimeout bounds a single scheduled enqueue
	TriggerTimeout time.Duration `yaml:"triggerTimeout" default:"10s"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Location); err != nil {
		return errors.Join(ErrInvalidLocation, err)
	}

	return nil
}
