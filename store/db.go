package store

import (
	"time"

	"github.com/barsamuebles/cronos/internal/models"
)

// DB is the durable ledger of stage timers.
type DB interface {
	// Upsert creates or replaces the record for rec.Key. StartedAt is only
	// taken from rec when the stored record has none.
	Upsert(rec *models.TimerRecord) error
	// Get returns the record for the key, or nil if there is none.
	Get(jobID int64, stage string) (*models.TimerRecord, error)
	// GetAllForJob returns every stage record of a job ordered by stage.
	GetAllForJob(jobID int64) ([]models.TimerRecord, error)
	// SetRunning flips the running flag, creating the record if needed.
	SetRunning(jobID int64, stage string, running bool) error
	// Finalize freezes the record at seconds and marks it finished.
	Finalize(jobID int64, stage string, seconds int64, at time.Time) error
	// ListRunning returns the unfinished records flagged as running.
	ListRunning() ([]models.TimerRecord, error)
	// Close ends the database connection
	Close() error
}
