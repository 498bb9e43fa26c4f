package timer

import "github.com/barsamuebles/cronos/internal/apperr"

var (
	// ErrTimerFinished is returned for commands against a finalized stage.
	ErrTimerFinished = &apperr.Error{
		Message: "timer %s is finished",
	}

	errWriterClosed = &apperr.Error{
		Message: "timer persistence is shut down",
	}

	errPersist = &apperr.Error{
		Message: "persisting timer %s failed",
	}
)
