package app

import "github.com/barsamuebles/cronos/internal/apperr"

var (
	errMissingArgs = &apperr.Error{
		Message: "expected %s",
	}

	errInvalidJobID = &apperr.Error{
		Message: "job id must be a positive integer, got %q",
	}

	errInvalidAt = &apperr.Error{
		Message: "cannot understand --at %q",
	}

	errInvalidCheckpoint = &apperr.Error{
		Message: "--checkpoint cannot be negative",
	}
)
