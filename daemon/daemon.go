// Package daemon runs the long-lived cronos process: it owns the timers,
// checkpoints them on a schedule and serves the local API.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/barsamuebles/cronos/internal/apperr"
	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/metrics"
	"github.com/barsamuebles/cronos/internal/timeutil"
	"github.com/barsamuebles/cronos/notify"
	"github.com/barsamuebles/cronos/server"
	"github.com/barsamuebles/cronos/store"
	"github.com/barsamuebles/cronos/timer"
)

var (
	errListen = &apperr.Error{
		Message: "cannot listen on %s",
	}

	errSchedule = &apperr.Error{
		Message: "cannot schedule checkpoints",
	}
)

const readHeaderTimeout = 5 * time.Second

// Daemon is a configured, not yet running, cronos daemon.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	db     store.DB
	ctrl   *timer.Controller
	idle   *idleWatch
	hook   *notify.Hook
	ln     net.Listener
	http   *http.Server
	cron   *cron.Cron
}

// Option customizes a Daemon.
type Option func(*daemonOptions)

type daemonOptions struct {
	clock timeutil.Clock
}

// WithClock sets the clock used by the timers.
func WithClock(clock timeutil.Clock) Option {
	return func(o *daemonOptions) {
		o.clock = clock
	}
}

// New opens the ledger, binds the listener and resumes the timers that
// were running when the previous daemon stopped.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	o := daemonOptions{clock: timeutil.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := store.NewClient(cfg.System.DBPath)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		db:     db,
		idle:   newIdleWatch(cfg.Lifecycle.ExitWhenIdle, cfg.Lifecycle.IdleGrace, logger),
	}

	ctrlOpts := []timer.Option{
		timer.WithClock(o.clock),
		timer.WithLogger(logger),
		timer.WithLifecycle(d.idle),
		timer.WithQueueSize(cfg.Persist.QueueSize),
		timer.WithPersistTimeout(cfg.Persist.Timeout),
	}

	if cfg.Notifications.Enabled {
		ctrlOpts = append(ctrlOpts, timer.WithPresenter(notify.NewDesktop(logger)))
	}

	d.hook, err = notify.NewHook(cfg.Hooks.OnFinalize, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if d.hook != nil {
		ctrlOpts = append(ctrlOpts, timer.WithFinalizeHook(d.hook))
	}

	d.ctrl = timer.New(db, ctrlOpts...)
	d.idle.watch(d.ctrl.Tracker().ActiveCount)

	metrics.Init(func() float64 {
		return float64(len(d.ctrl.ActiveKeys()))
	})

	d.ln, err = net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		_ = d.ctrl.Close(context.Background())
		_ = db.Close()

		return nil, errListen.Fmt(cfg.Server.Addr).Wrap(err)
	}

	d.http = &http.Server{
		Handler:           server.New(d.ctrl, logger, o.clock).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if err = d.ctrl.Recover(context.Background()); err != nil {
		d.logger.Error("recovering timers failed", "error", err)
	}

	if len(d.ctrl.ActiveKeys()) == 0 {
		d.idle.RequestAllowTermination()
	}

	return d, nil
}

// Addr returns the address the API is listening on.
func (d *Daemon) Addr() string {
	return d.ln.Addr().String()
}

// Controller returns the timer controller owned by the daemon.
func (d *Daemon) Controller() *timer.Controller {
	return d.ctrl
}

func (d *Daemon) scheduleCheckpoints() error {
	schedule := d.cfg.Checkpoint.Schedule
	if schedule == "" {
		return nil
	}

	d.cron = cron.New()

	_, err := d.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Persist.Timeout)
		defer cancel()

		if err := d.ctrl.Checkpoint(ctx); err != nil {
			d.logger.Error("checkpoint failed", "error", err)
		}
	})
	if err != nil {
		return errSchedule.Wrap(err)
	}

	d.cron.Start()

	d.logger.Info("checkpoints scheduled", "schedule", schedule)

	return nil
}

// Run serves the API until ctx is cancelled, the daemon has been idle for
// the configured grace period, or the server fails. Running timers are
// checkpointed and queued writes drained before it returns.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.scheduleCheckpoints(); err != nil {
		_ = d.shutdown()
		return err
	}

	serveErr := make(chan error, 1)

	go func() {
		err := d.http.Serve(d.ln)
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}

		close(serveErr)
	}()

	d.logger.Info("daemon started",
		"addr", d.Addr(),
		"version", config.Version,
	)

	var err error

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown requested")
	case <-d.idle.Done():
	case err = <-serveErr:
		d.logger.Error("server stopped", "error", err)
	}

	return multierr.Append(err, d.shutdown())
}

func (d *Daemon) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*d.cfg.Persist.Timeout)
	defer cancel()

	if d.cron != nil {
		<-d.cron.Stop().Done()
	}

	errs := d.http.Shutdown(ctx)
	_ = d.ln.Close()

	errs = multierr.Append(errs, d.ctrl.Checkpoint(ctx))
	errs = multierr.Append(errs, d.ctrl.Close(ctx))

	if d.hook != nil {
		d.hook.Wait()
	}

	errs = multierr.Append(errs, d.db.Close())

	d.logger.Info("daemon stopped")

	return errs
}
