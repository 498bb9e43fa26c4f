// Package store persists stage timer checkpoints in a BoltDB database
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/osutil"
)

const timerBucket = "timers"

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
	now func() time.Time
}

func jobPrefix(jobID int64) []byte {
	return []byte(fmt.Sprintf("%020d/", jobID))
}

func recordKey(jobID int64, stage string) []byte {
	return append(jobPrefix(jobID), stage...)
}

func getRecord(b *bolt.Bucket, key []byte) (*models.TimerRecord, error) {
	v := b.Get(key)
	if len(v) == 0 {
		return nil, nil
	}

	var rec models.TimerRecord

	err := json.Unmarshal(v, &rec)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (c *Client) putRecord(b *bolt.Bucket, rec *models.TimerRecord) error {
	rec.UpdatedAt = c.now()

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return b.Put(recordKey(rec.Key.JobID, rec.Key.Stage), value)
}

// update runs fn against the existing record for key (nil when absent)
// within a single write transaction. Finished records are rejected before fn
// is called.
func (c *Client) update(
	key models.TimerKey,
	fn func(existing *models.TimerRecord) *models.TimerRecord,
) error {
	return c.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(timerBucket))
		if b == nil {
			return errMissingBucket.Fmt(timerBucket)
		}

		existing, err := getRecord(b, recordKey(key.JobID, key.Stage))
		if err != nil {
			return err
		}

		if existing != nil && existing.IsFinished {
			return ErrRecordFinished.Fmt(key)
		}

		return c.putRecord(b, fn(existing))
	})
}

func (c *Client) Upsert(rec *models.TimerRecord) error {
	return c.update(rec.Key, func(existing *models.TimerRecord) *models.TimerRecord {
		r := *rec
		if existing != nil && existing.StartedAt != nil {
			r.StartedAt = existing.StartedAt
		}

		if r.AccumulatedSeconds < 0 {
			r.AccumulatedSeconds = 0
		}

		return &r
	})
}

func (c *Client) SetRunning(jobID int64, stage string, running bool) error {
	key := models.NewKey(jobID, stage)

	return c.update(key, func(existing *models.TimerRecord) *models.TimerRecord {
		if existing == nil {
			existing = &models.TimerRecord{Key: key}
		}

		existing.IsRunning = running

		if running && existing.StartedAt == nil {
			now := c.now()
			existing.StartedAt = &now
		}

		return existing
	})
}

func (c *Client) Finalize(
	jobID int64,
	stage string,
	seconds int64,
	at time.Time,
) error {
	key := models.NewKey(jobID, stage)

	return c.update(key, func(existing *models.TimerRecord) *models.TimerRecord {
		if existing == nil {
			existing = &models.TimerRecord{Key: key}
		}

		if seconds < 0 {
			seconds = 0
		}

		existing.AccumulatedSeconds = seconds
		existing.IsRunning = false
		existing.IsFinished = true
		existing.FinishedAt = &at

		return existing
	})
}

func (c *Client) Get(jobID int64, stage string) (*models.TimerRecord, error) {
	var rec *models.TimerRecord

	err := c.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(timerBucket))
		if b == nil {
			return errMissingBucket.Fmt(timerBucket)
		}

		var err error

		rec, err = getRecord(b, recordKey(jobID, stage))

		return err
	})

	return rec, err
}

func (c *Client) GetAllForJob(jobID int64) ([]models.TimerRecord, error) {
	var records []models.TimerRecord

	err := c.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(timerBucket))
		if b == nil {
			return errMissingBucket.Fmt(timerBucket)
		}

		cur := b.Cursor()
		prefix := jobPrefix(jobID)

		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			var rec models.TimerRecord

			err := json.Unmarshal(v, &rec)
			if err != nil {
				return err
			}

			records = append(records, rec)
		}

		return nil
	})

	return records, err
}

func (c *Client) ListRunning() ([]models.TimerRecord, error) {
	var records []models.TimerRecord

	err := c.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(timerBucket))
		if b == nil {
			return errMissingBucket.Fmt(timerBucket)
		}

		return b.ForEach(func(_, v []byte) error {
			var rec models.TimerRecord

			err := json.Unmarshal(v, &rec)
			if err != nil {
				return err
			}

			if rec.IsRunning && !rec.IsFinished {
				records = append(records, rec)
			}

			return nil
		})
	})

	return records, err
}

// openDB creates or opens a database and locks it.
func openDB(pathToDB string) (*bolt.DB, error) {
	db, err := bolt.Open(
		pathToDB,
		osutil.FilePermission,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseOpen) ||
			errors.Is(err, bolt.ErrTimeout) {
			return nil, errDaemonRunning
		}

		return nil, err
	}

	return db, nil
}

// NewClient returns a wrapper to a BoltDB connection.
func NewClient(dbPath string) (*Client, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	// Create the necessary buckets for storing data if they do not exist already
	err = db.Update(func(tx *bolt.Tx) error {
		_, err = tx.CreateBucketIfNotExists([]byte(timerBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{
		DB:  db,
		now: time.Now,
	}, nil
}
