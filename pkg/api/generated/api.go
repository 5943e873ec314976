// Package generated provides the types, server interface and route binding
// for the build history API described by openapi.yaml.
package generated

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v3"
	"github.com/oapi-codegen/runtime"
)

// Defines values for CompletedEntryResult.
const (
	CompletedEntryResultSUCCESS  CompletedEntryResult = "SUCCESS"
	CompletedEntryResultUNSTABLE CompletedEntryResult = "UNSTABLE"
	CompletedEntryResultFAILURE  CompletedEntryResult = "FAILURE"
	CompletedEntryResultNOTBUILT CompletedEntryResult = "NOT_BUILT"
	CompletedEntryResultABORTED  CompletedEntryResult = "ABORTED"
)

// CompletedEntry defines model for CompletedEntry.
type CompletedEntry struct {
	Description *string               `json:"description,omitempty"`
	DisplayName string                `json:"displayName"`
	DurationMs  *int64                `json:"durationMs,omitempty"`
	Number      int64                 `json:"number"`
	Result      *CompletedEntryResult `json:"result,omitempty"`
	RunId       string                `json:"runId"`
	Running     bool                  `json:"running"`

	// Sequence Absent for records that predate sequence tracking
	Sequence  *int64    `json:"sequence,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// CompletedEntryResult defines model for CompletedEntry.Result.
type CompletedEntryResult string

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// HistoryPage defines model for HistoryPage.
type HistoryPage struct {
	Completed    []CompletedEntry `json:"completed"`
	HasNewerPage bool             `json:"hasNewerPage"`
	HasOlderPage bool             `json:"hasOlderPage"`
	Job          string           `json:"job"`

	// NewestShown Absent when the page is empty
	NewestShown *int64 `json:"newestShown,omitempty"`

	// OldestShown Absent when the page is empty
	OldestShown *int64        `json:"oldestShown,omitempty"`
	Queued      []QueuedEntry `json:"queued"`
}

// Job defines model for Job.
type Job struct {
	Description *string   `json:"description,omitempty"`
	Downstream  *[]string `json:"downstream,omitempty"`
	Name        string    `json:"name"`
	Schedule    *string   `json:"schedule,omitempty"`
}

// JobList defines model for JobList.
type JobList struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}

// QueuedEntry defines model for QueuedEntry.
type QueuedEntry struct {
	Cause      *string   `json:"cause,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Job        string    `json:"job"`
	Sequence   int64     `json:"sequence"`
	TaskId     *string   `json:"taskId,omitempty"`
}

// TriggerBuildRequest defines model for TriggerBuildRequest.
type TriggerBuildRequest struct {
	Cause *string `json:"cause,omitempty"`
}

// GetJobHistoryParams defines parameters for GetJobHistory.
type GetJobHistoryParams struct {
	NewerThan *int64 `form:"newer-than,omitempty" json:"newer-than,omitempty"`
	OlderThan *int64 `form:"older-than,omitempty" json:"older-than,omitempty"`

	// Search Search terms: name:, desc:, result:, date-from:, date-to:
	Search *string `form:"search,omitempty" json:"search,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// TriggerBuildJSONRequestBody defines body for TriggerBuild for application/json ContentType.
type TriggerBuildJSONRequestBody = TriggerBuildRequest

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// List configured jobs
	// (GET /jobs)
	ListJobs(c fiber.Ctx) error
	// Get a job
	// (GET /jobs/{job})
	GetJob(c fiber.Ctx, job string) error
	// Queue a build
	// (POST /jobs/{job}/builds)
	TriggerBuild(c fiber.Ctx, job string) error
	// Get a page of build history
	// (GET /jobs/{job}/history)
	GetJobHistory(c fiber.Ctx, job string, params GetJobHistoryParams) error
}

// ServerInterfaceWrapper converts fiber contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// ListJobs operation middleware
func (siw *ServerInterfaceWrapper) ListJobs(c fiber.Ctx) error {
	return siw.Handler.ListJobs(c)
}

// GetJob operation middleware
func (siw *ServerInterfaceWrapper) GetJob(c fiber.Ctx) error {
	job, err := bindJob(c)
	if err != nil {
		return err
	}

	return siw.Handler.GetJob(c, job)
}

// TriggerBuild operation middleware
func (siw *ServerInterfaceWrapper) TriggerBuild(c fiber.Ctx) error {
	job, err := bindJob(c)
	if err != nil {
		return err
	}

	return siw.Handler.TriggerBuild(c, job)
}

// GetJobHistory operation middleware
func (siw *ServerInterfaceWrapper) GetJobHistory(c fiber.Ctx) error {
	job, err := bindJob(c)
	if err != nil {
		return err
	}

	// Parameter object where we will unmarshal all parameters from the context
	var params GetJobHistoryParams

	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for query string: %s", err.Error()))
	}

	// ------------- Optional query parameter "newer-than" -------------

	err = runtime.BindQueryParameter("form", true, false, "newer-than", query, &params.NewerThan)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter newer-than: %s", err.Error()))
	}

	// ------------- Optional query parameter "older-than" -------------

	err = runtime.BindQueryParameter("form", true, false, "older-than", query, &params.OlderThan)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter older-than: %s", err.Error()))
	}

	// ------------- Optional query parameter "search" -------------

	err = runtime.BindQueryParameter("form", true, false, "search", query, &params.Search)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter search: %s", err.Error()))
	}

	// ------------- Optional query parameter "limit" -------------

	err = runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err.Error()))
	}

	return siw.Handler.GetJobHistory(c, job, params)
}

func bindJob(c fiber.Ctx) (string, error) {
	var job string

	err := runtime.BindStyledParameterWithOptions("simple", "job", c.Params("job"), &job,
		runtime.BindStyledParameterOptions{Explode: false, Required: true, ParamLocation: runtime.ParamLocationPath})
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter job: %s", err.Error()))
	}

	return job, nil
}

// FiberServerOptions provides options for the Fiber server.
type FiberServerOptions struct {
	BaseURL     string
	Middlewares []fiber.Handler
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, FiberServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router fiber.Router, si ServerInterface, options FiberServerOptions) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	for _, m := range options.Middlewares {
		router.Use(m)
	}

	router.Get(options.BaseURL+"/jobs", wrapper.ListJobs)
	router.Get(options.BaseURL+"/jobs/:job", wrapper.GetJob)
	router.Post(options.BaseURL+"/jobs/:job/builds", wrapper.TriggerBuild)
	router.Get(options.BaseURL+"/jobs/:job/history", wrapper.GetJobHistory)
}

//go:embed openapi.yaml
var swaggerSpec []byte

// GetSwagger returns the OpenAPI document, validated
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(swaggerSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading OpenAPI document: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	return doc, nil
}
