package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type mockBuildService struct {
	jobs       []jobs.Job
	entries    []history.Entry
	historyErr error
	triggerErr error

	lastQuery   builds.Query
	lastCause   string
	lastTrigger string
}

func (m *mockBuildService) Jobs() []jobs.Job {
	return m.jobs
}

func (m *mockBuildService) Job(name string) (jobs.Job, error) {
	for _, job := range m.jobs {
		if job.Name == name {
			return job, nil
		}
	}
	return jobs.Job{}, fmt.Errorf("%w: %s", builds.ErrJobNotFound, name)
}

func (m *mockBuildService) History(_ context.Context, job string, query builds.Query) (*history.Page, error) {
	m.lastQuery = query
	if _, err := m.Job(job); err != nil {
		return nil, err
	}
	if m.historyErr != nil {
		return nil, m.historyErr
	}

	limit := query.Limit
	if limit == 0 {
		limit = 3
	}

	return history.ComputePage(m.entries, limit, query.NewerThan, query.OlderThan), nil
}

func (m *mockBuildService) Trigger(_ context.Context, job, cause, trigger string) (*history.QueuedEntry, error) {
	m.lastCause = cause
	m.lastTrigger = trigger
	if _, err := m.Job(job); err != nil {
		return nil, err
	}
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}

	return &history.QueuedEntry{
		ID:         42,
		Job:        job,
		Cause:      cause,
		TaskID:     job + ":42",
		EnqueuedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func testErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error(), "code": code})
}

func newTestApp(service *mockBuildService) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	generated.RegisterHandlers(app.Group("/api/v1"), NewServer(service, logger))

	return app
}

func newFixtureService() *mockBuildService {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	entries := []history.Entry{
		&history.QueuedEntry{ID: 6, Job: "deploy", Cause: "Started by API", EnqueuedAt: base.Add(6 * time.Minute)},
		&history.CompletedEntry{ID: 5, RunID: "run-5", Job: "deploy", Number: 5, DisplayName: "#5", StartedAt: base.Add(5 * time.Minute)},
	}
	for i := 4; i >= 1; i-- {
		entries = append(entries, &history.CompletedEntry{
			ID:          history.SequenceID(i),
			RunID:       fmt.Sprintf("run-%d", i),
			Job:         "deploy",
			Number:      int64(i),
			DisplayName: fmt.Sprintf("#%d", i),
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			Duration:    1500 * time.Millisecond,
			Result:      history.ResultSuccess.Ptr(),
		})
	}

	return &mockBuildService{
		jobs: []jobs.Job{
			{Name: "deploy", Description: "Ship it", Schedule: "@daily", Downstream: []string{"smoke"}},
			{Name: "smoke"},
		},
		entries: entries,
	}
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request, out any) *http.Response {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func TestListJobs(t *testing.T) {
	app := newTestApp(newFixtureService())

	var list generated.JobList
	resp := doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs", http.NoBody), &list)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Jobs, 2)

	deploy := list.Jobs[0]
	assert.Equal(t, "deploy", deploy.Name)
	require.NotNil(t, deploy.Schedule)
	assert.Equal(t, "@daily", *deploy.Schedule)
	require.NotNil(t, deploy.Downstream)
	assert.Equal(t, []string{"smoke"}, *deploy.Downstream)

	smoke := list.Jobs[1]
	assert.Nil(t, smoke.Description)
	assert.Nil(t, smoke.Downstream)
}

func TestGetJob(t *testing.T) {
	app := newTestApp(newFixtureService())

	t.Run("found", func(t *testing.T) {
		var job generated.Job
		resp := doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/deploy", http.NoBody), &job)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "deploy", job.Name)
		require.NotNil(t, job.Description)
		assert.Equal(t, "Ship it", *job.Description)
	})

	t.Run("not found", func(t *testing.T) {
		var body map[string]any
		resp := doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/missing", http.NoBody), &body)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "job not found", body["error"])
	})
}

func TestGetJobHistory_Latest(t *testing.T) {
	app := newTestApp(newFixtureService())

	var page generated.HistoryPage
	resp := doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/deploy/history", http.NoBody), &page)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "deploy", page.Job)
	assert.False(t, page.HasNewerPage)
	assert.True(t, page.HasOlderPage)

	require.Len(t, page.Queued, 1)
	assert.Equal(t, int64(6), page.Queued[0].Sequence)
	require.NotNil(t, page.Queued[0].Cause)
	assert.Equal(t, "Started by API", *page.Queued[0].Cause)

	require.Len(t, page.Completed, 2)
	running := page.Completed[0]
	assert.True(t, running.Running)
	assert.Nil(t, running.Result)
	assert.Nil(t, running.DurationMs)

	finished := page.Completed[1]
	assert.False(t, finished.Running)
	require.NotNil(t, finished.Result)
	assert.Equal(t, generated.CompletedEntryResultSUCCESS, *finished.Result)
	require.NotNil(t, finished.DurationMs)
	assert.Equal(t, int64(1500), *finished.DurationMs)

	require.NotNil(t, page.NewestShown)
	require.NotNil(t, page.OldestShown)
	assert.Equal(t, int64(6), *page.NewestShown)
	assert.Equal(t, int64(4), *page.OldestShown)
}

func TestGetJobHistory_Cursors(t *testing.T) {
	service := newFixtureService()
	app := newTestApp(service)

	var older generated.HistoryPage
	doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/deploy/history?older-than=4&limit=2&search=name:%23", http.NoBody), &older)

	require.NotNil(t, service.lastQuery.OlderThan)
	assert.Equal(t, history.SequenceID(4), *service.lastQuery.OlderThan)
	assert.Nil(t, service.lastQuery.NewerThan)
	assert.Equal(t, 2, service.lastQuery.Limit)
	assert.Equal(t, "name:#", service.lastQuery.Search)

	require.Len(t, older.Completed, 2)
	assert.Equal(t, "run-3", older.Completed[0].RunId)
	assert.Equal(t, "run-2", older.Completed[1].RunId)
	assert.True(t, older.HasNewerPage)
	assert.True(t, older.HasOlderPage)

	var newer generated.HistoryPage
	doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/deploy/history?newer-than=2&limit=2", http.NoBody), &newer)

	require.NotNil(t, service.lastQuery.NewerThan)
	require.Len(t, newer.Completed, 2)
	assert.Equal(t, "run-4", newer.Completed[0].RunId)
	assert.Equal(t, "run-3", newer.Completed[1].RunId)
}

func TestGetJobHistory_EmptyPageOmitsBounds(t *testing.T) {
	service := newFixtureService()
	service.entries = nil
	app := newTestApp(service)

	var page generated.HistoryPage
	resp := doRequest(t, app, httptest.NewRequest("GET", "/api/v1/jobs/smoke/history", http.NoBody), &page)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, page.Queued)
	assert.Empty(t, page.Completed)
	assert.Nil(t, page.NewestShown)
	assert.Nil(t, page.OldestShown)
	assert.False(t, page.HasNewerPage)
	assert.False(t, page.HasOlderPage)
}

func TestGetJobHistory_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		historyErr error
		wantStatus int
	}{
		{name: "unknown job", path: "/api/v1/jobs/missing/history", wantStatus: fiber.StatusNotFound},
		{name: "malformed cursor", path: "/api/v1/jobs/deploy/history?older-than=abc", wantStatus: fiber.StatusBadRequest},
		{name: "zero limit", path: "/api/v1/jobs/deploy/history?limit=0", wantStatus: fiber.StatusBadRequest},
		{name: "store failure", path: "/api/v1/jobs/deploy/history", historyErr: errStoreDown, wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newFixtureService()
			service.historyErr = tt.historyErr
			app := newTestApp(service)

			resp := doRequest(t, app, httptest.NewRequest("GET", tt.path, http.NoBody), nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestTriggerBuild(t *testing.T) {
	t.Run("default cause", func(t *testing.T) {
		service := newFixtureService()
		app := newTestApp(service)

		var entry generated.QueuedEntry
		resp := doRequest(t, app, httptest.NewRequest("POST", "/api/v1/jobs/deploy/builds", http.NoBody), &entry)

		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		assert.Equal(t, int64(42), entry.Sequence)
		assert.Equal(t, "Started by API", service.lastCause)
		assert.Equal(t, tasks.TriggerManual, service.lastTrigger)
		require.NotNil(t, entry.TaskId)
		assert.Equal(t, "deploy:42", *entry.TaskId)
	})

	t.Run("custom cause", func(t *testing.T) {
		service := newFixtureService()
		app := newTestApp(service)

		req := httptest.NewRequest("POST", "/api/v1/jobs/deploy/builds", strings.NewReader(`{"cause":"Release 1.2"}`))
		req.Header.Set("Content-Type", "application/json")

		resp := doRequest(t, app, req, nil)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "Release 1.2", service.lastCause)
	})

	t.Run("already queued", func(t *testing.T) {
		service := newFixtureService()
		service.triggerErr = fmt.Errorf("enqueue: %w", tasks.ErrAlreadyQueued)
		app := newTestApp(service)

		resp := doRequest(t, app, httptest.NewRequest("POST", "/api/v1/jobs/deploy/builds", http.NoBody), nil)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown job", func(t *testing.T) {
		app := newTestApp(newFixtureService())

		resp := doRequest(t, app, httptest.NewRequest("POST", "/api/v1/jobs/missing/builds", http.NoBody), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
