package frontend

import "errors"

// ErrTitleRequired is returned when the frontend is enabled without a title
var (
	ErrTitleRequired = errors.New("frontend title is required when frontend is enabled")
)

// Config represents frontend configuration. The pages are served by the API
// server.
type Config struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Title   string `yaml:"title" default:"Build History"`
}

// Validate validates the frontend configuration
func (c *Config) Validate() error {
	if c.Enabled && c.Title == "" {
		return ErrTitleRequired
	}
	return nil
}
