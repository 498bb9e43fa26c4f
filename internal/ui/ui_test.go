package ui

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/testutil"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()

	os.Exit(m.Run())
}

type fakeSource struct {
	err      error
	statuses []models.Status
}

func (f *fakeSource) List(context.Context) ([]models.Status, error) {
	return f.statuses, f.err
}

func plain(strs ...string) string {
	var s string
	for _, v := range strs {
		s += v
	}

	return s
}

func plainStyles() styles {
	return styles{
		title:    plain,
		job:      plain,
		running:  plain,
		paused:   plain,
		finished: plain,
		hint:     plain,
		err:      plain,
	}
}

type viewTest struct {
	name string
	view string
}

func (v viewTest) Output() ([]byte, string) {
	return []byte(v.view), v.name
}

var sampleStatuses = []models.Status{
	{Key: models.NewKey(12, "Madera"), ElapsedSeconds: 3725, Running: true},
	{Key: models.NewKey(12, "Tapiceria"), ElapsedSeconds: 600},
	{Key: models.NewKey(15, "Pintura"), ElapsedSeconds: 5400, Finished: true},
}

func newPlainWatch(src StatusSource) *Watch {
	w := NewWatch(src, time.Second)
	w.styles = plainStyles()

	return w
}

func TestWatchView(t *testing.T) {
	src := &fakeSource{statuses: sampleStatuses}
	w := newPlainWatch(src)

	_, cmd := w.Update(w.fetch())
	require.NotNil(t, cmd)

	testutil.CompareGoldenFile(t, viewTest{name: t.Name(), view: w.View()})
}

func TestWatchViewKeepsLastStatusesOnError(t *testing.T) {
	src := &fakeSource{statuses: sampleStatuses[:1]}
	w := newPlainWatch(src)

	w.Update(w.fetch())

	src.err = errors.New("cannot reach the cronos daemon")
	src.statuses = nil

	w.Update(w.fetch())

	testutil.CompareGoldenFile(t, viewTest{name: t.Name(), view: w.View()})
}

func TestWatchQuit(t *testing.T) {
	w := newPlainWatch(&fakeSource{})

	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWatchConnecting(t *testing.T) {
	w := newPlainWatch(&fakeSource{})

	assert.Contains(t, w.View(), "connecting to daemon...")
}

func TestStatusRows(t *testing.T) {
	rows := StatusRows(sampleStatuses)

	assert.Equal(t, [][]string{
		{"JOB", "STAGE", "ELAPSED", "STATE"},
		{"12", "Madera", "01:02:05", "running"},
		{"12", "Tapiceria", "00:10:00", "paused"},
		{"15", "Pintura", "01:30:00", "finished"},
	}, rows)
}

func TestRecordRows(t *testing.T) {
	rows := RecordRows([]models.TimerRecord{
		{Key: models.NewKey(3, "Lija"), AccumulatedSeconds: 61, IsRunning: true},
	})

	assert.Equal(t, [][]string{
		{"STAGE", "SAVED", "STATE", "STARTED", "FINISHED"},
		{"Lija", "00:01:01", "running", "-", "-"},
	}, rows)
}
