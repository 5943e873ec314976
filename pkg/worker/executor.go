// Package worker runs queued builds
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/sirupsen/logrus"
)

// CommandExecutor runs a job's command through the shell
type CommandExecutor struct {
	log       logrus.FieldLogger
	tailBytes int
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(log logrus.FieldLogger, tailBytes int) *CommandExecutor {
	return &CommandExecutor{
		log:       log.WithField("component", "command_executor"),
		tailBytes: tailBytes,
	}
}

// Execute runs the command and maps its exit status to a build result:
// exit 0 is SUCCESS, the job's unstable exit code is UNSTABLE, cancellation
// or timeout is ABORTED and anything else is FAILURE.
func (e *CommandExecutor) Execute(ctx context.Context, job jobs.Job, run *history.CompletedEntry) history.Result {
	log := e.log.WithFields(logrus.Fields{
		"job":      job.Name,
		"number":   run.Number,
		"sequence": run.ID.String(),
	})

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	// #nosec G204 -- Job commands come from the trusted job configuration
	cmd := exec.CommandContext(ctx, "sh", "-c", job.Command)
	cmd.Dir = job.Dir
	cmd.Env = append(os.Environ(), buildEnv(job, run)...)
	cmd.WaitDelay = 5 * time.Second
	killProcessGroup(cmd)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	log.WithField("command", job.Command).Info("Executing build command")

	err := cmd.Run()
	result := classify(ctx, err, job.UnstableExitCode)

	if result != history.ResultSuccess {
		log.WithFields(logrus.Fields{
			"result": result,
			"error":  err,
			"output": tail(output.Bytes(), e.tailBytes),
		}).Warn("Build command did not succeed")
	}

	return result
}

func classify(ctx context.Context, err error, unstableExitCode int) history.Result {
	if err == nil {
		return history.ResultSuccess
	}

	if ctx.Err() != nil {
		return history.ResultAborted
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if unstableExitCode != 0 && exitErr.ExitCode() == unstableExitCode {
			return history.ResultUnstable
		}
	}

	return history.ResultFailure
}

func buildEnv(job jobs.Job, run *history.CompletedEntry) []string {
	env := []string{
		"BUILD_JOB=" + job.Name,
		"BUILD_NUMBER=" + strconv.FormatInt(run.Number, 10),
		"BUILD_RUN_ID=" + run.RunID,
		"BUILD_CAUSE=" + run.Description,
	}

	if run.ID.Known() {
		env = append(env, fmt.Sprintf("BUILD_SEQUENCE=%d", int64(run.ID)))
	}

	return append(env, job.Env...)
}

func tail(output []byte, limit int) string {
	if limit <= 0 || len(output) <= limit {
		return string(output)
	}

	return "..." + string(output[len(output)-limit:])
}
