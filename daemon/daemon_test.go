package daemon

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsamuebles/cronos/client"
	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
		Persist: config.PersistConfig{
			QueueSize: 8,
			Timeout:   2 * time.Second,
		},
		System: config.SystemConfig{
			DBPath: filepath.Join(t.TempDir(), "cronos.db"),
		},
	}
}

// start runs d in the background and returns a function that stops it and
// reports what Run returned.
func start(t *testing.T, d *Daemon) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	go func() {
		result <- d.Run(ctx)
	}()

	return func() error {
		cancel()

		select {
		case err := <-result:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop")
			return nil
		}
	}
}

func TestRestartResumesRunningTimers(t *testing.T) {
	cfg := testConfig(t)
	clock := testutil.NewClock(time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC))

	d, err := New(cfg, discard, WithClock(clock))
	require.NoError(t, err)

	stop := start(t, d)
	c := client.New(d.Addr())

	_, err = c.Start(context.Background(), 15, "Madera", 0)
	require.NoError(t, err)

	_, err = c.Start(context.Background(), 15, "Pintura", 0)
	require.NoError(t, err)

	_, err = c.Pause(context.Background(), 15, "Pintura")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	require.NoError(t, stop())

	d, err = New(cfg, discard, WithClock(clock))
	require.NoError(t, err)

	stop = start(t, d)
	defer func() {
		assert.NoError(t, stop())
	}()

	ctrl := d.Controller()

	st := ctrl.Status(15, "Madera")
	assert.True(t, st.Running)
	assert.Equal(t, int64(120), st.ElapsedSeconds)

	assert.False(t, ctrl.Status(15, "Pintura").Running)
}

func TestScheduledCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Checkpoint.Schedule = "@every 1s"

	clock := testutil.NewClock(time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC))

	d, err := New(cfg, discard, WithClock(clock))
	require.NoError(t, err)

	stop := start(t, d)
	defer func() {
		assert.NoError(t, stop())
	}()

	c := client.New(d.Addr())

	_, err = c.Start(context.Background(), 8, "Armado", 0)
	require.NoError(t, err)

	clock.Advance(50 * time.Second)

	assert.Eventually(t, func() bool {
		records, err := c.Records(context.Background(), 8)
		if err != nil || len(records) != 1 {
			return false
		}

		return records[0].IsRunning && records[0].AccumulatedSeconds == 50
	}, 5*time.Second, 100*time.Millisecond)
}

func TestExitWhenIdle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lifecycle.ExitWhenIdle = true
	cfg.Lifecycle.IdleGrace = 20 * time.Millisecond

	d, err := New(cfg, discard)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- d.Run(context.Background())
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("idle daemon did not exit")
	}
}

func TestSecondDaemonRejected(t *testing.T) {
	cfg := testConfig(t)

	d, err := New(cfg, discard)
	require.NoError(t, err)

	stop := start(t, d)
	defer func() {
		assert.NoError(t, stop())
	}()

	_, err = New(cfg, discard)
	assert.ErrorContains(t, err, "already running")
}

func TestIdleWatch(t *testing.T) {
	w := newIdleWatch(true, 30*time.Millisecond, discard)

	w.RequestAllowTermination()
	w.RequestKeepAlive()

	select {
	case <-w.Done():
		t.Fatal("keep-alive did not cancel the shutdown")
	case <-time.After(100 * time.Millisecond):
	}

	w.RequestAllowTermination()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("idle shutdown did not fire")
	}
}

func TestIdleWatchDisabled(t *testing.T) {
	w := newIdleWatch(false, time.Millisecond, discard)

	w.RequestAllowTermination()

	select {
	case <-w.Done():
		t.Fatal("disabled watch fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIdleWatchRechecksRunningTimers(t *testing.T) {
	var running atomic.Int32

	w := newIdleWatch(true, 20*time.Millisecond, discard)
	w.watch(func() int { return int(running.Load()) })

	// a start that raced past the allow request
	running.Store(1)
	w.RequestAllowTermination()

	select {
	case <-w.Done():
		t.Fatal("daemon allowed to exit with a running timer")
	case <-time.After(100 * time.Millisecond):
	}

	running.Store(0)
	w.RequestAllowTermination()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("idle shutdown did not fire")
	}
}
