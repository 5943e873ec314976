package cmd

import (
	"os"

	"github.com/ethpandaops/buildhistory/pkg/engine"
)

// loadConfig reads and validates the engine configuration file
func loadConfig(path string) (*engine.Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	config, err := engine.ParseConfig(yamlFile)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// openClient loads the configuration and connects the build stores
func openClient() (*engine.Client, func(), error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	client, err := engine.NewClient(logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close client")
		}
	}

	return client, closeFn, nil
}
