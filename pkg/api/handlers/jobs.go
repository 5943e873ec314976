package handlers

import (
	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/gofiber/fiber/v3"
)

// ListJobs handles GET /api/v1/jobs
func (s *Server) ListJobs(c fiber.Ctx) error {
	configured := s.builds.Jobs()

	list := generated.JobList{
		Jobs:  make([]generated.Job, 0, len(configured)),
		Total: len(configured),
	}
	for i := range configured {
		list.Jobs = append(list.Jobs, convertJob(&configured[i]))
	}

	return c.Status(fiber.StatusOK).JSON(list)
}

// GetJob handles GET /api/v1/jobs/{job}
func (s *Server) GetJob(c fiber.Ctx, job string) error {
	definition, err := s.builds.Job(job)
	if err != nil {
		if builds.IsNotFound(err) {
			return ErrJobNotFound
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(convertJob(&definition))
}

func convertJob(job *jobs.Job) generated.Job {
	out := generated.Job{Name: job.Name}

	if job.Description != "" {
		out.Description = &job.Description
	}

	if job.Schedule != "" {
		out.Schedule = &job.Schedule
	}

	if len(job.Downstream) > 0 {
		downstream := append([]string(nil), job.Downstream...)
		out.Downstream = &downstream
	}

	return out
}
