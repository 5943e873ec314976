//go:build integration

package testutil

import (
	"context"
	"testing"

	r "github.com/ethpandaops/buildhistory/pkg/redis"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisConnection holds connection details for test containers.
type RedisConnection struct {
	Client        *redis.Client
	Options       *redis.Options
	ConnectionURL string // redis://host:port
}

// Config returns a store configuration for the container under prefix
func (c *RedisConnection) Config(prefix string) *r.Config {
	return &r.Config{URL: c.ConnectionURL, Prefix: prefix}
}

// AsynqOptions returns build queue options for the container
func (c *RedisConnection) AsynqOptions() *asynq.RedisClientOpt {
	return r.NewAsynqRedisOptions(c.Options)
}

// NewRedisContainer starts a Redis container and returns connection details.
// The container is automatically terminated when the test completes.
func NewRedisContainer(t *testing.T) *RedisConnection {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	connURL, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	opts, err := redis.ParseURL(connURL)
	if err != nil {
		t.Fatalf("failed to parse connection string %q: %v", connURL, err)
	}

	client := redis.NewClient(opts)

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close Redis client: %v", err)
		}
	})

	return &RedisConnection{
		Client:        client,
		Options:       opts,
		ConnectionURL: connURL,
	}
}
