// Package notify delivers timer events outside the process: desktop
// notifications and user-configured commands
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/barsamuebles/cronos/internal/timeutil"
)

// Desktop shows a desktop notification whenever a stage timer changes state.
type Desktop struct {
	logger *slog.Logger
	send   func(title, message string) error
}

// NewDesktop returns a Desktop presenter.
func NewDesktop(logger *slog.Logger) *Desktop {
	return &Desktop{
		logger: logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Message returns the notification title and body for a stage status.
func Message(jobID int64, stage string, elapsed int64, running bool) (title, body string) {
	title = fmt.Sprintf("Job %d · %s", jobID, stage)

	if running {
		return title, "Running since " + timeutil.FormatSeconds(elapsed)
	}

	return title, "Paused at " + timeutil.FormatSeconds(elapsed)
}

// NotifyKeyStatusChanged sends the notification without blocking the caller.
func (d *Desktop) NotifyKeyStatusChanged(
	jobID int64,
	stage string,
	elapsed int64,
	running bool,
) {
	title, body := Message(jobID, stage, elapsed, running)

	go func() {
		if err := d.send(title, body); err != nil {
			d.logger.Warn("desktop notification failed",
				"job", jobID,
				"stage", stage,
				"error", err,
			)
		}
	}()
}
