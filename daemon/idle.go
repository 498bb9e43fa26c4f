package daemon

import (
	"log/slog"
	"sync"
	"time"
)

// idleWatch implements timer.Lifecycle. When enabled, it closes done once
// no timer has been running for the grace period.
type idleWatch struct {
	logger  *slog.Logger
	timer   *time.Timer
	active  func() int
	done    chan struct{}
	grace   time.Duration
	once    sync.Once
	mu      sync.Mutex
	enabled bool
}

func newIdleWatch(enabled bool, grace time.Duration, logger *slog.Logger) *idleWatch {
	return &idleWatch{
		logger:  logger,
		done:    make(chan struct{}),
		grace:   grace,
		enabled: enabled,
	}
}

// watch sets the running timer count checked again when the grace period
// ends. A start that lands after the last allow request keeps the daemon up.
func (w *idleWatch) watch(active func() int) {
	w.mu.Lock()
	w.active = active
	w.mu.Unlock()
}

func (w *idleWatch) RequestKeepAlive() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil

		w.logger.Debug("idle shutdown cancelled")
	}
}

func (w *idleWatch) RequestAllowTermination() {
	if !w.enabled {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		return
	}

	var t *time.Timer

	t = time.AfterFunc(w.grace, func() {
		w.mu.Lock()
		current := w.timer == t
		busy := current && w.active != nil && w.active() > 0
		if busy {
			w.timer = nil
		}
		w.mu.Unlock()

		if !current {
			return
		}

		if busy {
			w.logger.Debug("idle shutdown skipped, timers running")
			return
		}

		w.logger.Info("no running timers, shutting down", "grace", w.grace)
		w.once.Do(func() { close(w.done) })
	})

	w.timer = t

	w.logger.Debug("idle shutdown scheduled", "grace", w.grace)
}

// Done is closed when the daemon may exit.
func (w *idleWatch) Done() <-chan struct{} {
	return w.done
}
