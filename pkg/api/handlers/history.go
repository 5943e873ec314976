package handlers

import (
	"errors"

	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// GetJobHistory handles GET /api/v1/jobs/{job}/history
func (s *Server) GetJobHistory(c fiber.Ctx, job string, params generated.GetJobHistoryParams) error {
	query := builds.Query{}

	if params.Limit != nil {
		if *params.Limit < 1 {
			return ErrInvalidLimit
		}
		query.Limit = *params.Limit
	}

	if params.Search != nil {
		query.Search = *params.Search
	}

	if params.NewerThan != nil {
		id := history.SequenceID(*params.NewerThan)
		query.NewerThan = &id
	}

	if params.OlderThan != nil {
		id := history.SequenceID(*params.OlderThan)
		query.OlderThan = &id
	}

	page, err := s.builds.History(c.Context(), job, query)
	if err != nil {
		if builds.IsNotFound(err) {
			return ErrJobNotFound
		}
		s.log.WithError(err).WithField("job", job).Error("Failed to compute history page")
		return err
	}

	return c.Status(fiber.StatusOK).JSON(convertPage(job, page))
}

// TriggerBuild handles POST /api/v1/jobs/{job}/builds
func (s *Server) TriggerBuild(c fiber.Ctx, job string) error {
	var body generated.TriggerBuildJSONRequestBody
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&body); err != nil {
			return ErrInvalidBody
		}
	}

	cause := "Started by API"
	if body.Cause != nil && *body.Cause != "" {
		cause = *body.Cause
	}

	entry, err := s.builds.Trigger(c.Context(), job, cause, tasks.TriggerManual)
	if err != nil {
		switch {
		case builds.IsNotFound(err):
			return ErrJobNotFound
		case errors.Is(err, tasks.ErrAlreadyQueued):
			return ErrBuildAlreadyQueued
		}
		s.log.WithError(err).WithFields(logrus.Fields{"job": job}).Error("Failed to trigger build")
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(convertQueued(entry))
}

func convertPage(job string, page *history.Page) generated.HistoryPage {
	out := generated.HistoryPage{
		Job:          job,
		Queued:       make([]generated.QueuedEntry, 0, len(page.Queued)),
		Completed:    make([]generated.CompletedEntry, 0, len(page.Completed)),
		HasNewerPage: page.HasNewerPage,
		HasOlderPage: page.HasOlderPage,
	}

	for _, entry := range page.Queued {
		out.Queued = append(out.Queued, convertQueued(entry))
	}

	for _, entry := range page.Completed {
		out.Completed = append(out.Completed, convertCompleted(entry))
	}

	// The sentinel bounds of an empty page are not sequence ids
	if !page.Empty() {
		newest := int64(page.NewestShown)
		oldest := int64(page.OldestShown)
		out.NewestShown = &newest
		out.OldestShown = &oldest
	}

	return out
}

func convertQueued(entry *history.QueuedEntry) generated.QueuedEntry {
	out := generated.QueuedEntry{
		Sequence:   int64(entry.ID),
		Job:        entry.Job,
		EnqueuedAt: entry.EnqueuedAt,
	}

	if entry.Cause != "" {
		cause := entry.Cause
		out.Cause = &cause
	}

	if entry.TaskID != "" {
		taskID := entry.TaskID
		out.TaskId = &taskID
	}

	return out
}

func convertCompleted(entry *history.CompletedEntry) generated.CompletedEntry {
	out := generated.CompletedEntry{
		RunId:       entry.RunID,
		Number:      entry.Number,
		DisplayName: entry.DisplayName,
		StartedAt:   entry.StartedAt,
		Running:     entry.Running(),
	}

	if entry.ID.Known() {
		sequence := int64(entry.ID)
		out.Sequence = &sequence
	}

	if entry.Description != "" {
		description := entry.Description
		out.Description = &description
	}

	if !entry.Running() {
		result := generated.CompletedEntryResult(*entry.Result)
		durationMs := entry.Duration.Milliseconds()
		out.Result = &result
		out.DurationMs = &durationMs
	}

	return out
}
