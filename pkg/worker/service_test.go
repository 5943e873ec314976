package worker

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRouter struct{}

func (staticRouter) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{}
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{
			name: "valid config",
			cfg:  &Config{Concurrency: 5, ShutdownTimeout: 30 * time.Second},
		},
		{
			name:    "zero concurrency",
			cfg:     &Config{Concurrency: 0},
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative shutdown timeout",
			cfg:     &Config{Concurrency: 1, ShutdownTimeout: -time.Second},
			wantErr: ErrInvalidShutdownTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(logrus.New(), tt.cfg, staticRouter{}, []string{"compile"}, "ci", &redis.Options{Addr: "localhost:6379"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestService_StartWithoutQueuesIsIdle(t *testing.T) {
	cfg := &Config{Concurrency: 1, Jobs: []string{"other"}}
	svc, err := NewService(logrus.New(), cfg, staticRouter{}, []string{"compile"}, "ci", &redis.Options{Addr: "localhost:6379"})
	require.NoError(t, err)

	require.NoError(t, svc.Start(t.Context()))
	require.NoError(t, svc.Stop())
}

func TestFilteredJobs(t *testing.T) {
	all := []string{"compile", "deploy", "test"}

	assert.Equal(t, all, filteredJobs(all, nil))
	assert.Equal(t, []string{"deploy", "test"}, filteredJobs(all, []string{"test", "deploy", "missing"}))
}

func TestQueueWeights(t *testing.T) {
	queues := queueWeights([]string{"compile", "deploy"}, "ci")

	assert.Equal(t, map[string]int{"ci:compile": 10, "ci:deploy": 10}, queues)
}
