package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBuildService struct{}

func (stubBuildService) Jobs() []jobs.Job { return []jobs.Job{{Name: "deploy"}} }

func (stubBuildService) Job(name string) (jobs.Job, error) {
	if name != "deploy" {
		return jobs.Job{}, builds.ErrJobNotFound
	}
	return jobs.Job{Name: name}, nil
}

func (stubBuildService) History(context.Context, string, builds.Query) (*history.Page, error) {
	return history.ComputePage(nil, 1, nil, nil), nil
}

func (stubBuildService) Trigger(_ context.Context, job, cause, _ string) (*history.QueuedEntry, error) {
	return &history.QueuedEntry{ID: 1, Job: job, Cause: cause, EnqueuedAt: time.Now()}, nil
}

func newTestApp(t *testing.T, frontend http.Handler) *fiber.App {
	t.Helper()

	doc, err := generated.GetSwagger()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return newApp(doc, stubBuildService{}, frontend, logger)
}

func TestApp_OpenAPIDocument(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/openapi.json", http.NoBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/jobs/{job}/history")
}

func TestApp_ErrorResponses(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/jobs/missing", http.NoBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body generated.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusNotFound, body.Code)
	assert.Equal(t, "job not found", body.Error)
}

func TestApp_FrontendFallback(t *testing.T) {
	frontend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(r.URL.Path))
	})
	app := newTestApp(t, frontend)

	resp, err := app.Test(httptest.NewRequest("GET", "/jobs/deploy", http.NoBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "/jobs/deploy", string(body))

	apiResp, err := app.Test(httptest.NewRequest("GET", "/api/v1/jobs", http.NoBody))
	require.NoError(t, err)
	defer apiResp.Body.Close()
	assert.Equal(t, fiber.StatusOK, apiResp.StatusCode)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}},
		{name: "valid", cfg: Config{Enabled: true, Addr: ":8080", ShutdownTimeout: time.Second}},
		{name: "missing addr", cfg: Config{Enabled: true, ShutdownTimeout: time.Second}, wantErr: ErrAPIAddrRequired},
		{name: "missing timeout", cfg: Config{Enabled: true, Addr: ":8080"}, wantErr: ErrInvalidShutdownTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
