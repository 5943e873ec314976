package builds

import (
	"errors"
)

var (
	// ErrInvalidPageSize is returned when the default page size is not positive
	ErrInvalidPageSize = errors.New("history page size must be positive")
	// ErrPageSizeAboveMax is returned when the default page size exceeds the maximum
	ErrPageSizeAboveMax = errors.New("history page size exceeds max page size")
	// ErrInvalidRetention is returned for a negative retention
	ErrInvalidRetention = errors.New("history retention must not be negative")
)

// Config controls history paging and record retention
type Config struct {
	// PageSize is used when a request does not ask for a limit
	PageSize int `yaml:"pageSize" default:"20"`
	// MaxPageSize caps requested limits
	MaxPageSize int `yaml:"maxPageSize" default:"100"`
	// Retention is the number of records kept per job; 0 keeps all
	Retention int `yaml:"retention" default:"200"`
}

// Validate checks the history configuration
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return ErrInvalidPageSize
	}

	if c.MaxPageSize < c.PageSize {
		return ErrPageSizeAboveMax
	}

	if c.Retention < 0 {
		return ErrInvalidRetention
	}

	return nil
}

// Limit resolves a requested page size against the configured bounds
func (c *Config) Limit(requested int) int {
	switch {
	case requested <= 0:
		return c.PageSize
	case requested > c.MaxPageSize:
		return c.MaxPageSize
	default:
		return requested
	}
}
