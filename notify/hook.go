package notify

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/barsamuebles/cronos/internal/models"
)

// Hook runs a user command after a stage is finalized, e.g. to push the
// final time to the production-management system. The record is passed in
// CRONOS_* environment variables.
type Hook struct {
	logger *slog.Logger
	name   string
	args   []string
	wg     sync.WaitGroup
}

// NewHook parses cmdline. An empty command line yields a nil Hook.
func NewHook(cmdline string, logger *slog.Logger) (*Hook, error) {
	args, err := shellquote.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("unable to parse on_finalize hook: %w", err)
	}

	if len(args) == 0 {
		return nil, nil
	}

	return &Hook{
		logger: logger,
		name:   args[0],
		args:   args[1:],
	}, nil
}

func hookEnv(rec models.TimerRecord) []string {
	finishedAt := ""
	if rec.FinishedAt != nil {
		finishedAt = rec.FinishedAt.Format(time.RFC3339)
	}

	return append(os.Environ(),
		"CRONOS_JOB_ID="+strconv.FormatInt(rec.Key.JobID, 10),
		"CRONOS_STAGE="+rec.Key.Stage,
		"CRONOS_ELAPSED_SECONDS="+strconv.FormatInt(rec.AccumulatedSeconds, 10),
		"CRONOS_FINISHED_AT="+finishedAt,
	)
}

// Finalized starts the command in the background.
func (h *Hook) Finalized(rec models.TimerRecord) {
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		//nolint:gosec // the command comes from the user's own config
		cmd := exec.Command(h.name, h.args...)
		cmd.Env = hookEnv(rec)

		out, err := cmd.CombinedOutput()
		if err != nil {
			h.logger.Error("on_finalize hook failed",
				"job", rec.Key.JobID,
				"stage", rec.Key.Stage,
				"output", string(out),
				"error", err,
			)

			return
		}

		h.logger.Info("on_finalize hook ran",
			"job", rec.Key.JobID,
			"stage", rec.Key.Stage,
		)
	}()
}

// Wait blocks until every started command has exited.
func (h *Hook) Wait() {
	h.wg.Wait()
}
