// Package handlers implements the build history API server interface.
package handlers

import (
	"context"

	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/sirupsen/logrus"
)

// BuildService is the part of builds.Service the handlers use
type BuildService interface {
	Jobs() []jobs.Job
	Job(name string) (jobs.Job, error)
	History(ctx context.Context, job string, query builds.Query) (*history.Page, error)
	Trigger(ctx context.Context, job, cause, trigger string) (*history.QueuedEntry, error)
}

// Server implements the generated.ServerInterface
type Server struct {
	builds BuildService
	log    logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(buildService BuildService, log logrus.FieldLogger) *Server {
	return &Server{
		builds: buildService,
		log:    log.WithField("component", "api.handlers"),
	}
}

// Ensure we implement the interface at compile time
var _ generated.ServerInterface = (*Server)(nil)
