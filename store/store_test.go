package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsamuebles/cronos/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient(filepath.Join(t.TempDir(), "cronos.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

func TestGetMissingRecord(t *testing.T) {
	c := newTestClient(t)

	rec, err := c.Get(1, "Madera")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpsertKeepsStartedAt(t *testing.T) {
	c := newTestClient(t)

	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	key := models.NewKey(7, "Pintura")

	require.NoError(t, c.Upsert(&models.TimerRecord{
		Key:       key,
		IsRunning: true,
		StartedAt: &started,
	}))

	require.NoError(t, c.Upsert(&models.TimerRecord{
		Key:                key,
		AccumulatedSeconds: 90,
	}))

	rec, err := c.Get(7, "Pintura")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(90), rec.AccumulatedSeconds)
	assert.False(t, rec.IsRunning)
	require.NotNil(t, rec.StartedAt)
	assert.True(t, rec.StartedAt.Equal(started))
}

func TestGetAllForJob(t *testing.T) {
	c := newTestClient(t)

	for _, k := range []models.TimerKey{
		models.NewKey(1, "Pintura"),
		models.NewKey(1, "Madera"),
		models.NewKey(10, "Madera"),
		models.NewKey(2, "Tapiceria"),
	} {
		require.NoError(t, c.Upsert(&models.TimerRecord{Key: k, AccumulatedSeconds: 5}))
	}

	records, err := c.GetAllForJob(1)
	require.NoError(t, err)

	want := []models.TimerRecord{
		{Key: models.NewKey(1, "Madera"), AccumulatedSeconds: 5},
		{Key: models.NewKey(1, "Pintura"), AccumulatedSeconds: 5},
	}

	if diff := cmp.Diff(want, records, cmpopts.IgnoreFields(models.TimerRecord{}, "UpdatedAt")); diff != "" {
		t.Errorf("GetAllForJob(1) mismatch (-want +got):\n%s", diff)
	}
}

func TestSetRunningCreatesRecord(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.SetRunning(3, "Lijado", true))

	running, err := c.ListRunning()
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, models.NewKey(3, "Lijado"), running[0].Key)
	assert.NotNil(t, running[0].StartedAt)

	require.NoError(t, c.SetRunning(3, "Lijado", false))

	running, err = c.ListRunning()
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestFinalizedRecordIsImmutable(t *testing.T) {
	c := newTestClient(t)

	at := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)

	require.NoError(t, c.SetRunning(4, "Armado", true))
	require.NoError(t, c.Finalize(4, "Armado", 3600, at))

	err := c.Upsert(&models.TimerRecord{
		Key:                models.NewKey(4, "Armado"),
		AccumulatedSeconds: 10,
	})
	assert.ErrorIs(t, err, ErrRecordFinished)

	assert.ErrorIs(t, c.SetRunning(4, "Armado", true), ErrRecordFinished)
	assert.ErrorIs(t, c.Finalize(4, "Armado", 1, at), ErrRecordFinished)

	rec, err := c.Get(4, "Armado")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(3600), rec.AccumulatedSeconds)
	assert.True(t, rec.IsFinished)
	assert.False(t, rec.IsRunning)
	assert.True(t, rec.FinishedAt.Equal(at))

	running, err := c.ListRunning()
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestSecondClientIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronos.db")

	c, err := NewClient(path)
	require.NoError(t, err)

	defer c.Close()

	_, err = NewClient(path)
	assert.ErrorIs(t, err, errDaemonRunning)
}
