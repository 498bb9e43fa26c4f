package store

import "github.com/barsamuebles/cronos/internal/apperr"

var (
	errDaemonRunning = &apperr.Error{
		Message: "is the cronos daemon already running? The timer database is locked by another process",
	}

	// ErrRecordFinished is returned for writes against a finalized record.
	ErrRecordFinished = &apperr.Error{
		Message: "timer %s is finished and can no longer change",
	}

	errMissingBucket = &apperr.Error{
		Message: "bucket %q does not exist",
	}
)
