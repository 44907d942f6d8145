package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/syncfix/syncfix/internal/api"
	"github.com/syncfix/syncfix/internal/app/cooldown"
	"github.com/syncfix/syncfix/internal/app/orchestrator"
	"github.com/syncfix/syncfix/internal/app/trigger"
	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/health"
	"github.com/syncfix/syncfix/internal/infra/eventlog"
	"github.com/syncfix/syncfix/internal/infra/process"
	"github.com/syncfix/syncfix/internal/infra/resource"
	"github.com/syncfix/syncfix/internal/infra/sqlite"
	"github.com/syncfix/syncfix/internal/logging"
)

const (
	shutdownTimeout = 30 * time.Second
	runDrainTimeout = 30 * time.Second
	logRingSize     = 500
)

// Daemon holds all running syncfix services.
type Daemon struct {
	Config    *ConfigStore
	Home      string
	Addr      string
	DB        *sqlite.DB
	Logger    *logrus.Logger
	Events    *eventlog.Ring
	Sink      domain.EventSink
	Cooldown  *cooldown.Store
	Apps      *process.Controller
	Idle      *resource.IdleDetector
	Runner    domain.Runner
	Coord     *trigger.Coordinator
	Scheduler *trigger.Scheduler
	Health    *health.Checker
	Server    *api.Server

	log       domain.Emitter
	lock      *flock.Flock
	logCloser io.Closer
	cancel    context.CancelFunc
}

// New creates a daemon from the config file in the syncfix home.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, ConfigPath(), version)
}

// NewWithConfig creates a daemon with explicit configuration. path is the
// file watched for hot reload. Fails with domain.ErrDaemonRunning when
// another daemon holds the lock.
func NewWithConfig(cfg Config, path, version string) (d *Daemon, err error) {
	home := syncfixHome()
	lock, err := acquireLock(home)
	if err != nil {
		return nil, err
	}

	d = &Daemon{
		Home: home,
		Addr: fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		lock: lock,
	}
	defer func() {
		if err != nil {
			d.Close()
			d = nil
		}
	}()

	logger, closer, err := logging.New(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return d, err
	}
	d.Logger, d.logCloser = logger, closer

	ringLevel, perr := domain.ParseLogLevel(cfg.Logging.Level)
	if perr != nil {
		ringLevel = domain.LevelInfo
	}
	d.Events = eventlog.NewRing(logRingSize, ringLevel)
	d.Sink = eventlog.Fanout{eventlog.NewLogrusSink(logger), d.Events}
	d.log = domain.Emitter{Sink: d.Sink, Source: "daemon"}
	for _, w := range cfg.Warnings {
		d.log.Warnf("config: %s", w)
	}

	db, err := sqlite.Open(home)
	if err != nil {
		return d, fmt.Errorf("open state db: %w", err)
	}
	d.DB = db

	// Cooldown never carries over a restart.
	d.Cooldown = cooldown.New(db, d.Sink)
	d.Cooldown.Reset()

	d.Config = NewConfigStore(path, cfg, d.Sink)
	d.Apps = process.NewController(cfg.ProcessConfig())
	d.Idle = resource.NewIdleDetector()

	orch := orchestrator.New(d.Apps, d.Config.OrchestratorSettings)
	d.Runner = orchestrator.NewRetrier(orch, d.Config.RetryPolicy)

	d.Coord = trigger.NewCoordinator(trigger.Deps{
		Cooldown: d.Cooldown,
		Runner:   d.Runner,
		Actions:  d.Apps,
		Idle:     d.Idle,
		Config:   d.Config,
		Sink:     d.Sink,
	})
	d.Scheduler = trigger.NewScheduler(d.Coord, d.Config, d.Idle, d.Sink)
	d.Health = health.NewChecker(db, d.Apps, home, d.Sink)

	srv := api.NewServer(d.Coord, d.Apps, d.Health, d.Events, version)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Serve starts the background loops and the HTTP server, and blocks until
// ctx is cancelled or SIGINT/SIGTERM arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer d.Close()

	var loops sync.WaitGroup
	loops.Add(3)
	go func() {
		defer loops.Done()
		d.Health.Run(ctx)
	}()
	go func() {
		defer loops.Done()
		d.Scheduler.Run(ctx)
	}()
	go func() {
		defer loops.Done()
		if err := d.Config.Watch(ctx); err != nil {
			d.log.Warnf("config hot reload disabled: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         d.Addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			d.log.Infof("received %s, shutting down", sig)
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)

		if d.Coord.Running() {
			d.log.Infof("waiting up to %s for the current run", runDrainTimeout)
		}
		if !d.Coord.Wait(runDrainTimeout) {
			d.log.Warnf("abandoning run %s still in progress at shutdown", d.Coord.Status().RunID)
		}
	}()

	fmt.Printf("syncfix serving on http://%s\n", d.Addr)
	cfg := d.Config.Config()
	if cfg.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", d.Addr)
	}
	d.log.Infof("daemon started (idle trigger %v, scheduled trigger %v at %s)",
		cfg.IdleTrigger.Enabled, cfg.ScheduledTrigger.Enabled, cfg.ScheduledTrigger.Time)

	err := httpServer.ListenAndServe()
	cancel()
	<-done
	loops.Wait()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	d.log.Infof("daemon stopped")
	return nil
}

// Close shuts down all daemon resources and releases the lock.
// Safe to call more than once. While a run is still in flight the state
// db, log file and lock stay open for its completion; process exit
// reclaims them.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Coord != nil && d.Coord.Running() {
		return
	}
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
	if d.logCloser != nil {
		_ = d.logCloser.Close()
		d.logCloser = nil
	}
	if d.lock != nil {
		_ = d.lock.Unlock()
		d.lock = nil
	}
}

// ─── One-shot Runs ──────────────────────────────────────────────────────────

// RunOnce executes a single orchestrator run in the foreground, outside
// the daemon, and records the cooldown on completion. Fails with
// domain.ErrDaemonRunning while a daemon holds the lock.
func RunOnce(ctx context.Context, cfg Config, sink domain.EventSink) (bool, error) {
	home := syncfixHome()
	lock, err := acquireLock(home)
	if err != nil {
		return false, err
	}
	defer lock.Unlock()

	db, err := sqlite.Open(home)
	if err != nil {
		return false, fmt.Errorf("open state db: %w", err)
	}
	defer db.Close()

	cd := cooldown.New(db, sink)
	ctrl := process.NewController(cfg.ProcessConfig())
	runner := orchestrator.NewRetrier(
		orchestrator.New(ctrl, cfg.OrchestratorSettings),
		cfg.RetryPolicy,
	)

	ok := runner.Run(ctx, sink)
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	cd.RecordTrigger("manual run " + outcome)
	return ok, nil
}

// acquireLock takes the single-instance lock without blocking.
func acquireLock(home string) (*flock.Flock, error) {
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("create syncfix home: %w", err)
	}
	lock := flock.New(filepath.Join(home, "daemon.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, domain.ErrDaemonRunning
	}
	return lock, nil
}
