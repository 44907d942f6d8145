// Package trigger decides when the orchestrator runs. The Coordinator owns
// the single run-in-progress flag and is shared by every entry point; the
// Scheduler is the background polling loop for the idle and scheduled
// triggers.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/syncfix/syncfix/internal/app/cooldown"
	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/metrics"
)

// Outcome is the result of an automatic dispatch attempt.
type Outcome int

const (
	Dispatched Outcome = iota
	SuppressedCooldown
	SuppressedBusy
)

func (o Outcome) String() string {
	switch o {
	case Dispatched:
		return "dispatched"
	case SuppressedCooldown:
		return "cooldown"
	case SuppressedBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Deps wires a Coordinator.
type Deps struct {
	Cooldown *cooldown.Store
	Runner   domain.Runner
	Actions  domain.ProcessActions
	Idle     domain.IdleSampler
	Config   domain.ConfigSource
	Sink     domain.EventSink

	// RunContext is the parent context of every run. Runs keep going when
	// the daemon starts shutting down so process calls finish cleanly;
	// defaults to context.Background().
	RunContext context.Context
}

// Coordinator enforces "at most one orchestrator run at a time" across
// the idle, scheduled and manual paths.
type Coordinator struct {
	deps Deps
	log  domain.Emitter

	running atomic.Bool

	mu    sync.Mutex
	stats domain.RunStats
	runID string
	done  chan struct{} // closed once the latest run has completed

	newID func() string
}

// NewCoordinator creates a coordinator.
func NewCoordinator(deps Deps) *Coordinator {
	if deps.RunContext == nil {
		deps.RunContext = context.Background()
	}
	done := make(chan struct{})
	close(done)
	return &Coordinator{
		deps:  deps,
		log:   domain.Emitter{Sink: deps.Sink, Source: "coordinator"},
		done:  done,
		newID: uuid.NewString,
	}
}

// Running reports whether an orchestrator run (or manual app action) is active.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// TriggerNow starts a manual run. It never consults the cooldown but is
// rejected while another run is active. The cooldown is recorded when the
// run completes.
func (c *Coordinator) TriggerNow() (runID string, ok bool) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Warnf("manual trigger rejected: a run is already in progress")
		metrics.TriggersSuppressed.WithLabelValues(string(domain.SourceManual), SuppressedBusy.String()).Inc()
		return "", false
	}
	runID = c.newID()
	c.launch(domain.SourceManual, runID)
	return runID, true
}

// tryDispatch is the automatic path: take the run flag, then check and
// record the cooldown under its lock. A busy coordinator does not consume
// the cooldown.
func (c *Coordinator) tryDispatch(source domain.TriggerSource, d time.Duration) (Outcome, string) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Infof("%s trigger suppressed: a run is already in progress", source)
		metrics.TriggersSuppressed.WithLabelValues(string(source), SuppressedBusy.String()).Inc()
		return SuppressedBusy, ""
	}

	if !c.deps.Cooldown.CheckAndRecordIfAllowed(d, string(source)+" trigger") {
		c.running.Store(false)
		c.log.Infof("%s trigger suppressed: cooldown active, %.1f min remaining",
			source, c.deps.Cooldown.Remaining(d).Minutes())
		metrics.TriggersSuppressed.WithLabelValues(string(source), SuppressedCooldown.String()).Inc()
		return SuppressedCooldown, ""
	}

	runID := c.newID()
	c.launch(source, runID)
	return Dispatched, runID
}

// launch runs the orchestrator on its own goroutine. The caller holds the
// run flag; complete releases it.
func (c *Coordinator) launch(source domain.TriggerSource, runID string) {
	done := make(chan struct{})
	c.mu.Lock()
	c.runID = runID
	c.done = done
	c.mu.Unlock()

	metrics.RunInProgress.Set(1)
	c.log.Infof("%s trigger: starting run %s", source, runID)

	go func() {
		defer close(done)
		start := time.Now()
		ok := false

		defer func() {
			if r := recover(); r != nil {
				c.log.Errorf("run %s crashed: %v", runID, r)
				ok = false
			}
			c.complete(source, runID, ok, start)
		}()

		ok = c.deps.Runner.Run(c.deps.RunContext, domain.WithRunID(c.deps.Sink, runID))
	}()
}

// complete records the cooldown, updates stats and clears the run flag.
// Runs on success, failure and panic alike.
func (c *Coordinator) complete(source domain.TriggerSource, runID string, ok bool, start time.Time) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	c.deps.Cooldown.RecordTrigger(fmt.Sprintf("%s run %s", source, outcome))

	c.mu.Lock()
	if ok {
		c.stats.SuccessCount++
	} else {
		c.stats.ErrorCount++
	}
	c.stats.LastRunAt = time.Now()
	c.stats.LastSuccess = ok
	c.stats.LastSource = string(source)
	c.runID = ""
	c.mu.Unlock()

	metrics.RunsTotal.WithLabelValues(string(source), outcome).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.RunInProgress.Set(0)

	c.running.Store(false)
	c.log.Infof("run %s finished: %s", runID, outcome)
}

// Wait blocks until no run is in flight or timeout elapses. Reports
// whether all runs finished.
func (c *Coordinator) Wait(timeout time.Duration) bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// ─── Manual Controls ────────────────────────────────────────────────────────

// ResetCooldown clears the shared cooldown.
func (c *Coordinator) ResetCooldown() {
	c.deps.Cooldown.Reset()
}

// ApplyCooldown starts the cooldown as if a trigger just fired, without
// running the orchestrator.
func (c *Coordinator) ApplyCooldown() {
	c.deps.Cooldown.RecordTrigger("manual apply")
}

// StartApp starts one app. Rejected while a run is active.
func (c *Coordinator) StartApp(ctx context.Context, app domain.AppID) error {
	return c.appAction(ctx, app, "start", c.deps.Actions.Start)
}

// StopApp stops one app. Rejected while a run is active.
func (c *Coordinator) StopApp(ctx context.Context, app domain.AppID) error {
	return c.appAction(ctx, app, "stop", c.deps.Actions.Stop)
}

func (c *Coordinator) appAction(ctx context.Context, app domain.AppID, verb string,
	fn func(context.Context, domain.AppID) error) error {
	if _, err := domain.ParseAppID(string(app)); err != nil {
		return err
	}
	if !c.running.CompareAndSwap(false, true) {
		return domain.ErrRunInProgress
	}
	defer c.running.Store(false)

	c.log.Infof("manual %s %s", verb, app)
	if err := fn(ctx, app); err != nil {
		c.log.Errorf("manual %s %s failed: %v", verb, app, err)
		return err
	}
	return nil
}

// ─── Status ─────────────────────────────────────────────────────────────────

// Stats returns a copy of the run statistics.
func (c *Coordinator) Stats() domain.RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Status assembles the snapshot served to the CLI and API.
func (c *Coordinator) Status() domain.Status {
	cfg := c.deps.Config.TriggerConfig()
	remaining := c.deps.Cooldown.Remaining(cfg.Cooldown)
	metrics.CooldownRemaining.Set(remaining.Seconds())

	c.mu.Lock()
	stats := c.stats
	runID := c.runID
	c.mu.Unlock()

	st := domain.Status{
		RunInProgress:     c.running.Load(),
		CurrentStep:       domain.StepStart,
		RunID:             runID,
		CooldownRemaining: remaining.Seconds(),
		LastSuccess:       stats.LastSuccess,
		SuccessCount:      stats.SuccessCount,
		ErrorCount:        stats.ErrorCount,
		IdleEnabled:       cfg.IdleTriggerEnabled,
		ScheduledEnabled:  cfg.ScheduledTriggerEnabled,
	}
	if s, ok := c.deps.Runner.(interface{ Step() domain.Step }); ok {
		st.CurrentStep = s.Step()
	}
	if t, ok := c.deps.Cooldown.LastTrigger(); ok {
		st.LastTriggerAt = &t
	}
	if !stats.LastRunAt.IsZero() {
		t := stats.LastRunAt
		st.LastRunAt = &t
	}
	if c.deps.Idle != nil {
		st.IdleSeconds = c.deps.Idle.IdleSeconds()
	}
	return st
}
