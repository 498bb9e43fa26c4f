// Package timer runs the per-stage production stopwatches: an in-memory
// tracker that computes elapsed time, and a controller that sequences
// commands against it and the durable ledger
package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/barsamuebles/cronos/internal/metrics"
	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
	"github.com/barsamuebles/cronos/store"
)

const (
	defaultQueueSize      = 64
	defaultPersistTimeout = 5 * time.Second
)

// Lifecycle is told whether the process hosting the timers must stay alive.
type Lifecycle interface {
	RequestKeepAlive()
	RequestAllowTermination()
}

// Presenter displays the status of a stage timer.
type Presenter interface {
	NotifyKeyStatusChanged(jobID int64, stage string, elapsedSeconds int64, running bool)
}

// FinalizeHook is called once a finalized stage has been persisted.
type FinalizeHook interface {
	Finalized(rec models.TimerRecord)
}

type (
	nopLifecycle struct{}
	nopPresenter struct{}
)

func (nopLifecycle) RequestKeepAlive()        {}
func (nopLifecycle) RequestAllowTermination() {}

func (nopPresenter) NotifyKeyStatusChanged(int64, string, int64, bool) {}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the wall-clock source.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLifecycle sets the process-lifecycle sink.
func WithLifecycle(l Lifecycle) Option {
	return func(c *Controller) {
		c.lifecycle = l
	}
}

// WithPresenter sets the presentation sink.
func WithPresenter(p Presenter) Option {
	return func(c *Controller) {
		c.presenter = p
	}
}

// WithFinalizeHook sets the hook run after a stage is finalized.
func WithFinalizeHook(h FinalizeHook) Option {
	return func(c *Controller) {
		c.hooks = append(c.hooks, h)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithQueueSize bounds the number of ledger writes waiting to be applied.
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		c.queueSize = n
	}
}

// WithPersistTimeout bounds how long awaited writes may take.
func WithPersistTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.persistTimeout = d
	}
}

// Controller owns the stage timers of one process. It mutates the in-memory
// tracker synchronously and hands ledger writes to a single writer
// goroutine.
type Controller struct {
	clock          timeutil.Clock
	db             store.DB
	lifecycle      Lifecycle
	presenter      Presenter
	logger         *slog.Logger
	tracker        *Tracker
	writes         *writer
	hooks          []FinalizeHook
	queueSize      int
	persistTimeout time.Duration
	// seq makes "mutate tracker, queue write" a single step so writes are
	// queued in the same order as the mutations they record.
	seq sync.Mutex
}

// New returns a Controller persisting to db.
func New(db store.DB, opts ...Option) *Controller {
	c := &Controller{
		db:             db,
		clock:          timeutil.SystemClock{},
		lifecycle:      nopLifecycle{},
		presenter:      nopPresenter{},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		queueSize:      defaultQueueSize,
		persistTimeout: defaultPersistTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.tracker = NewTracker(c.clock)
	c.writes = newWriter(c.queueSize)

	return c
}

// Tracker returns the in-memory tracker.
func (c *Controller) Tracker() *Tracker {
	return c.tracker
}

func (c *Controller) notify(key models.TimerKey) {
	s := c.tracker.Status(key)

	c.presenter.NotifyKeyStatusChanged(
		key.JobID,
		key.Stage,
		s.ElapsedSeconds,
		s.Running,
	)
}

func (c *Controller) allowTerminationIfIdle() {
	if c.tracker.ActiveCount() == 0 {
		c.lifecycle.RequestAllowTermination()
	}
}

// adoptFinished aligns the tracker with a ledger record that turned out to be
// finished, e.g. a stage finalized before the process restarted.
func (c *Controller) adoptFinished(key models.TimerKey) {
	rec, err := c.db.Get(key.JobID, key.Stage)
	if err != nil || rec == nil || !rec.IsFinished {
		return
	}

	c.tracker.Restore(ActiveTimer{
		Key:               key,
		CheckpointSeconds: rec.AccumulatedSeconds,
		Finished:          true,
	})

	c.logger.Warn("timer already finalized in ledger",
		"job", key.JobID,
		"stage", key.Stage,
		"elapsed", rec.AccumulatedSeconds,
	)

	c.notify(key)
	c.allowTerminationIfIdle()
}

// persist queues write and returns a channel receiving its result. Failures
// are logged here; after runs on the writer goroutine once the write is
// done, whatever its outcome.
func (c *Controller) persist(
	ctx context.Context,
	op string,
	key models.TimerKey,
	write func() error,
	after func(err error),
) <-chan error {
	result := func(err error) <-chan error {
		ch := make(chan error, 1)
		ch <- err

		return ch
	}

	done, err := c.writes.enqueue(ctx, func(wctx context.Context) error {
		if err := wctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := write()

		metrics.ObservePersist(op, err, time.Since(start))

		if err != nil {
			err = errPersist.Fmt(key).Wrap(err)

			c.logger.Error("timer persistence failed",
				"op", op,
				"job", key.JobID,
				"stage", key.Stage,
				"error", err,
			)

			if errors.Is(err, store.ErrRecordFinished) {
				c.adoptFinished(key)
			}
		} else {
			c.logger.Debug("timer persisted",
				"op", op,
				"job", key.JobID,
				"stage", key.Stage,
			)
		}

		if after != nil {
			after(err)
		}

		return err
	})
	if err != nil {
		err = errPersist.Fmt(key).Wrap(err)

		c.logger.Error("timer persistence not queued",
			"op", op,
			"job", key.JobID,
			"stage", key.Stage,
			"error", err,
		)

		if after != nil {
			after(err)
		}

		return result(err)
	}

	return done
}

// await waits for a queued write, bounded by the persist timeout.
func (c *Controller) await(ctx context.Context, done <-chan error) error {
	ctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	defer cancel()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load returns the tracker state for key. A key this process has not seen
// yet is seeded from its ledger record, which is returned too. Callers hold
// c.seq.
func (c *Controller) load(key models.TimerKey) (ActiveTimer, *models.TimerRecord, error) {
	a, ok := c.tracker.Get(key)
	if ok {
		return a, nil, nil
	}

	rec, err := c.db.Get(key.JobID, key.Stage)
	if err != nil || rec == nil {
		return a, nil, err
	}

	a = ActiveTimer{
		Key:               key,
		CheckpointSeconds: rec.AccumulatedSeconds,
		Finished:          rec.IsFinished,
	}

	c.tracker.Restore(a)

	return a, rec, nil
}

// HandleStartCommand starts (or resumes) the timer for a stage, counting
// from checkpoint or from its own checkpoint if that is larger. Starting a
// running timer is a no-op.
func (c *Controller) HandleStartCommand(
	ctx context.Context,
	jobID int64,
	stage string,
	checkpoint int64,
) error {
	key := models.NewKey(jobID, stage)

	c.seq.Lock()

	prev, ledger, err := c.load(key)
	if err != nil {
		c.seq.Unlock()
		metrics.IncCommand("start", err)

		return err
	}

	wasIdle := c.tracker.ActiveCount() == 0

	err = c.tracker.Start(key, checkpoint)
	if err != nil {
		c.seq.Unlock()
		metrics.IncCommand("start", err)

		c.logger.Warn("start rejected",
			"job", jobID,
			"stage", stage,
			"error", err,
		)

		return err
	}

	if prev.Running() {
		c.seq.Unlock()
		metrics.IncCommand("start", nil)
		c.notify(key)

		return nil
	}

	if wasIdle {
		c.lifecycle.RequestKeepAlive()
	}

	now := c.clock.Now()
	rec := models.TimerRecord{
		Key:                key,
		AccumulatedSeconds: c.tracker.CurrentElapsed(key),
		IsRunning:          true,
		StartedAt:          &now,
	}

	write := func() error {
		return c.db.Upsert(&rec)
	}

	// resuming at the saved checkpoint only flips the running flag
	if ledger != nil && ledger.AccumulatedSeconds == rec.AccumulatedSeconds {
		write = func() error {
			return c.db.SetRunning(key.JobID, key.Stage, true)
		}
	}

	c.persist(ctx, "start", key, write, nil)

	c.seq.Unlock()

	metrics.IncCommand("start", nil)

	c.logger.Info("timer started",
		"job", jobID,
		"stage", stage,
		"checkpoint", rec.AccumulatedSeconds,
	)

	c.notify(key)

	return nil
}

// HandlePauseCommand stops the timer for a stage and queues the persistence
// of the value it stopped at. The returned channel receives the outcome of
// that write; a failure does not undo the pause.
func (c *Controller) HandlePauseCommand(
	ctx context.Context,
	jobID int64,
	stage string,
) <-chan error {
	key := models.NewKey(jobID, stage)
	done := make(chan error, 1)

	c.seq.Lock()

	a, ok := c.tracker.Get(key)
	if !ok {
		c.seq.Unlock()
		metrics.IncCommand("pause", nil)

		done <- nil

		return done
	}

	if a.Finished {
		c.seq.Unlock()

		err := ErrTimerFinished.Fmt(key)
		metrics.IncCommand("pause", err)

		done <- err

		return done
	}

	elapsed := c.tracker.Stop(key)
	rec := models.TimerRecord{
		Key:                key,
		AccumulatedSeconds: elapsed,
	}

	result := c.persist(ctx, "pause", key, func() error {
		return c.db.Upsert(&rec)
	}, func(error) {
		c.allowTerminationIfIdle()
	})

	c.seq.Unlock()

	metrics.IncCommand("pause", nil)

	c.logger.Info("timer paused",
		"job", jobID,
		"stage", stage,
		"elapsed", elapsed,
	)

	c.notify(key)

	return result
}

// HandleResetCommand sets the timer for a stage back to zero and pauses it.
// Nothing is persisted until the stage is paused or finalized again.
func (c *Controller) HandleResetCommand(
	_ context.Context,
	jobID int64,
	stage string,
) error {
	key := models.NewKey(jobID, stage)

	c.seq.Lock()

	prev, ok := c.tracker.Get(key)
	err := c.tracker.Reset(key)

	c.seq.Unlock()

	metrics.IncCommand("reset", err)

	if err != nil {
		c.logger.Warn("reset rejected",
			"job", jobID,
			"stage", stage,
			"error", err,
		)

		return err
	}

	if !ok {
		return nil
	}

	c.logger.Info("timer reset", "job", jobID, "stage", stage)

	c.notify(key)

	if prev.Running() {
		c.allowTerminationIfIdle()
	}

	return nil
}

// HandleFinalizeCommand stops the timer for a stage for good and waits for
// the ledger to record it. A stage unknown to this process is finalized at
// its last persisted checkpoint. On a failed write the timer is put back the
// way it was.
func (c *Controller) HandleFinalizeCommand(
	ctx context.Context,
	jobID int64,
	stage string,
	at time.Time,
) (int64, error) {
	key := models.NewKey(jobID, stage)

	elapsed, done, prev, err := c.finish(ctx, key, at)
	if err != nil {
		metrics.IncCommand("finalize", err)
		return elapsed, err
	}

	c.notify(key)

	err = c.await(ctx, done)
	metrics.IncCommand("finalize", err)

	if err != nil {
		if !errors.Is(err, store.ErrRecordFinished) {
			c.tracker.Restore(prev)
			c.notify(key)
		}

		return 0, err
	}

	c.logger.Info("timer finalized",
		"job", jobID,
		"stage", stage,
		"elapsed", elapsed,
	)

	rec := models.TimerRecord{
		Key:                key,
		AccumulatedSeconds: elapsed,
		IsFinished:         true,
		FinishedAt:         &at,
	}

	for _, h := range c.hooks {
		h.Finalized(rec)
	}

	return elapsed, nil
}

func (c *Controller) finish(
	ctx context.Context,
	key models.TimerKey,
	at time.Time,
) (int64, <-chan error, ActiveTimer, error) {
	c.seq.Lock()
	defer c.seq.Unlock()

	prev, _, err := c.load(key)
	if err != nil {
		return 0, nil, prev, err
	}

	if prev.Key != key {
		prev = ActiveTimer{Key: key}
		c.tracker.Restore(prev)
	}

	elapsed, err := c.tracker.Finish(key)
	if err != nil {
		return elapsed, nil, prev, err
	}

	done := c.persist(ctx, "finalize", key, func() error {
		return c.db.Finalize(key.JobID, key.Stage, elapsed, at)
	}, func(error) {
		c.allowTerminationIfIdle()
	})

	return elapsed, done, prev, nil
}

// StopAllForJob pauses every running stage of a job and waits for each to
// be persisted. Stages are handled independently: a stage whose write fails
// keeps running, and its error is included in the returned error.
func (c *Controller) StopAllForJob(ctx context.Context, jobID int64) error {
	type pending struct {
		done    <-chan error
		prev    ActiveTimer
		stopped ActiveTimer
	}

	var stopped []pending

	c.seq.Lock()

	for _, key := range c.tracker.ActiveKeys() {
		if key.JobID != jobID {
			continue
		}

		prev, _ := c.tracker.Get(key)
		elapsed := c.tracker.Stop(key)
		rec := models.TimerRecord{
			Key:                key,
			AccumulatedSeconds: elapsed,
		}

		done := c.persist(ctx, "stop_job", key, func() error {
			return c.db.Upsert(&rec)
		}, nil)

		after, _ := c.tracker.Get(key)
		stopped = append(stopped, pending{done: done, prev: prev, stopped: after})
	}

	c.seq.Unlock()

	var errs error

	for _, p := range stopped {
		key := p.prev.Key

		err := c.await(ctx, p.done)
		if err != nil && !errors.Is(err, store.ErrRecordFinished) {
			c.rollback(p.prev, p.stopped)
			errs = multierr.Append(errs, err)
		}

		c.notify(key)
	}

	metrics.IncCommand("stop_job", errs)

	c.logger.Info("job timers stopped",
		"job", jobID,
		"stages", len(stopped),
		"failed", len(multierr.Errors(errs)),
	)

	c.allowTerminationIfIdle()

	return errs
}

// rollback puts prev back unless a later command already changed the timer
// away from the state the failed write recorded.
func (c *Controller) rollback(prev, stopped ActiveTimer) {
	c.seq.Lock()
	defer c.seq.Unlock()

	cur, ok := c.tracker.Get(prev.Key)
	if !ok || !sameState(cur, stopped) {
		c.logger.Warn("rollback skipped, timer changed meanwhile",
			"job", prev.Key.JobID,
			"stage", prev.Key.Stage,
		)

		return
	}

	c.tracker.Restore(prev)
}

func sameState(a, b ActiveTimer) bool {
	if a.CheckpointSeconds != b.CheckpointSeconds || a.Finished != b.Finished {
		return false
	}

	if a.RunningSince == nil || b.RunningSince == nil {
		return a.RunningSince == b.RunningSince
	}

	return *a.RunningSince == *b.RunningSince
}

// ElapsedFor returns the live elapsed seconds of a stage without any I/O.
func (c *Controller) ElapsedFor(jobID int64, stage string) int64 {
	return c.tracker.CurrentElapsed(models.NewKey(jobID, stage))
}

// ActiveKeys returns the running stages.
func (c *Controller) ActiveKeys() []models.TimerKey {
	return c.tracker.ActiveKeys()
}

// Status returns the live view of a stage.
func (c *Controller) Status(jobID int64, stage string) models.Status {
	return c.tracker.Status(models.NewKey(jobID, stage))
}

// Statuses returns the live view of every stage known to this process.
func (c *Controller) Statuses() []models.Status {
	return c.tracker.Statuses()
}

// Records returns the ledger entries of a job.
func (c *Controller) Records(_ context.Context, jobID int64) ([]models.TimerRecord, error) {
	return c.db.GetAllForJob(jobID)
}

// Recover resumes the stages the ledger still flags as running, counting
// from their last checkpoint. Time elapsed between that checkpoint and the
// end of the previous process is lost.
func (c *Controller) Recover(_ context.Context) error {
	records, err := c.db.ListRunning()
	if err != nil {
		return err
	}

	var resumed int

	c.seq.Lock()

	for i := range records {
		rec := records[i]

		err := c.tracker.Start(rec.Key, rec.AccumulatedSeconds)
		if err != nil {
			c.logger.Warn("recover skipped",
				"job", rec.Key.JobID,
				"stage", rec.Key.Stage,
				"error", err,
			)

			continue
		}

		resumed++
	}

	c.seq.Unlock()

	if resumed > 0 {
		c.lifecycle.RequestKeepAlive()
	}

	for i := range records {
		c.notify(records[i].Key)
	}

	c.logger.Info("timers recovered", "count", resumed)

	return nil
}

// Checkpoint persists the live elapsed time of every running stage so that
// a crash loses at most the time since the last checkpoint.
func (c *Controller) Checkpoint(ctx context.Context) error {
	var dones []<-chan error

	c.seq.Lock()

	for _, key := range c.tracker.ActiveKeys() {
		rec := models.TimerRecord{
			Key:                key,
			AccumulatedSeconds: c.tracker.CurrentElapsed(key),
			IsRunning:          true,
		}

		dones = append(dones, c.persist(ctx, "checkpoint", key, func() error {
			return c.db.Upsert(&rec)
		}, nil))
	}

	c.seq.Unlock()

	var errs error

	for _, done := range dones {
		errs = multierr.Append(errs, c.await(ctx, done))
	}

	return errs
}

// Close stops accepting writes and waits, within ctx, for queued ones.
func (c *Controller) Close(ctx context.Context) error {
	return c.writes.close(ctx)
}
