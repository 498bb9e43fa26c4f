package timer

import (
	"context"
	"sync"

	"github.com/barsamuebles/cronos/internal/metrics"
)

type writeTask struct {
	fn   func(ctx context.Context) error
	done chan error
}

// writer applies ledger writes one at a time in the order they were queued,
// so two writes for the same key always land in command order.
type writer struct {
	tasks   chan writeTask
	stopped chan struct{}
	cancel  context.CancelFunc
	ctx     context.Context
	mu      sync.RWMutex
	closed  bool
}

func newWriter(queueSize int) *writer {
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &writer{
		tasks:   make(chan writeTask, queueSize),
		stopped: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	go w.run()

	return w
}

func (w *writer) run() {
	defer close(w.stopped)

	for t := range w.tasks {
		metrics.SetQueueDepth(len(w.tasks))

		t.done <- t.fn(w.ctx)
	}
}

// enqueue queues fn and returns a channel that receives its result. The
// channel is buffered, so callers may ignore it. An error is returned when
// the task could not be queued at all.
func (w *writer) enqueue(
	ctx context.Context,
	fn func(context.Context) error,
) (<-chan error, error) {
	done := make(chan error, 1)

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return nil, errWriterClosed
	}

	select {
	case w.tasks <- writeTask{fn: fn, done: done}:
		metrics.SetQueueDepth(len(w.tasks))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return done, nil
}

// close stops accepting writes and waits for queued ones to finish. If ctx
// expires first, the context handed to the remaining writes is cancelled.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		return ctx.Err()
	}
}
