// Package jobs holds build job definitions and the downstream trigger graph
package jobs

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrJobNameRequired is returned when a job has no name
	ErrJobNameRequired = errors.New("job name is required")
	// ErrInvalidJobName is returned when a job name cannot be used in keys or URLs
	ErrInvalidJobName = errors.New("job name may only contain letters, digits, '-', '_' and '.'")
	// ErrCommandRequired is returned when a job has nothing to run
	ErrCommandRequired = errors.New("job command is required")
	// ErrInvalidTimeout is returned for a non-positive timeout
	ErrInvalidTimeout = errors.New("job timeout must be positive")
	// ErrInvalidSchedule is returned when the cron expression does not parse
	ErrInvalidSchedule = errors.New("invalid job schedule")
	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("duplicate job name")
	// ErrJobNotFound is returned when a job is not configured
	ErrJobNotFound = errors.New("job not found")
)

var jobNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Job defines a build job
type Job struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Command runs through "sh -c" in Dir
	Command string `yaml:"command"`
	Dir     string `yaml:"dir"`
	// Env entries are KEY=VALUE pairs added to the worker's environment
	Env []string `yaml:"env"`
	// Schedule is an optional cron expression with optional seconds field
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout" default:"30m"`
	// UnstableExitCode marks a build UNSTABLE instead of FAILURE; 0 disables it
	UnstableExitCode int `yaml:"unstableExitCode"`
	// Downstream jobs are triggered when a build of this job succeeds
	Downstream []string `yaml:"downstream"`
}

// ScheduleParser accepts standard five field specs, an optional leading
// seconds field and descriptors such as @hourly
//
//nolint:gochecknoglobals // Shared with the scheduler
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks a single job definition
func (j *Job) Validate() error {
	if j.Name == "" {
		return ErrJobNameRequired
	}

	if !jobNamePattern.MatchString(j.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidJobName, j.Name)
	}

	if j.Command == "" {
		return fmt.Errorf("%w: %s", ErrCommandRequired, j.Name)
	}

	if j.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, j.Name)
	}

	if j.Schedule != "" {
		if _, err := ScheduleParser.Parse(j.Schedule); err != nil {
			return fmt.Errorf("%w for %s: %w", ErrInvalidSchedule, j.Name, err)
		}
	}

	return nil
}
