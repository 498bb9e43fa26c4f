// Package models defines the timer types shared by the store, the timer
// engine and the HTTP API
package models

import (
	"fmt"
	"time"
)

// TimerKey identifies the stopwatch of one production stage within a job.
type TimerKey struct {
	Stage string `json:"stage"`
	JobID int64  `json:"job_id"`
}

// NewKey returns the key for the given job and stage.
func NewKey(jobID int64, stage string) TimerKey {
	return TimerKey{JobID: jobID, Stage: stage}
}

func (k TimerKey) String() string {
	return fmt.Sprintf("%d/%s", k.JobID, k.Stage)
}

// TimerRecord is the durable projection of a stage timer. AccumulatedSeconds
// is the last checkpoint, not the live value of a running timer.
type TimerRecord struct {
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Key                TimerKey   `json:"key"`
	AccumulatedSeconds int64      `json:"accumulated_seconds"`
	IsRunning          bool       `json:"is_running"`
	IsFinished         bool       `json:"is_finished"`
}

// Status is the live view of a stage timer.
type Status struct {
	Key            TimerKey `json:"key"`
	ElapsedSeconds int64    `json:"elapsed_seconds"`
	Running        bool     `json:"running"`
	Finished       bool     `json:"finished"`
}
