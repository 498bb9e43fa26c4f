package server

import "github.com/barsamuebles/cronos/internal/apperr"

var (
	errBadJobID = &apperr.Error{
		Message: "invalid job id %q",
	}

	errBadBody = &apperr.Error{
		Message: "invalid request body",
	}

	errPauseNotSaved = &apperr.Error{
		Message: "timer paused but its elapsed time was not saved",
	}

	errStopJob = &apperr.Error{
		Message: "some timers of job %d could not be stopped",
	}
)
