package testutil

import (
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewMiniredisOptions starts an in-memory Redis and returns options pointing
// at it, for components that open their own clients. The server is closed
// when the test completes.
func NewMiniredisOptions(t *testing.T) (*miniredis.Miniredis, *redis.Options) {
	t.Helper()

	mr := miniredis.RunT(t)

	return mr, &redis.Options{Addr: mr.Addr()}
}

// NewMiniredisClient returns both a miniredis server and a connected client.
// Both are automatically closed when the test completes.
func NewMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, opts := NewMiniredisOptions(t)
	client := redis.NewClient(opts)

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close miniredis client: %v", err)
		}
	})

	return mr, client
}

// NewLogger returns a logger that discards output
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}
