// Package orchestrator runs the four-step sequence that clears a file-lock
// conflict between the chat app and the sync client:
//
//	START → STOPPING_CHAT → RESTARTING_SYNC → WAITING_FOR_SYNC → RESTARTING_CHAT → DONE
//
// Any step may end in FAILED. Steps run strictly in order; the next step
// never starts before the previous step's process call returns.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/resource"
)

// Settings is read at the start of every run.
type Settings struct {
	SyncWait         time.Duration
	ProgressInterval time.Duration

	ChatStopSettle  time.Duration
	SyncStopSettle  time.Duration
	SyncStartSettle time.Duration
	StableTimeout   time.Duration

	// DryRun logs the plan and reports success without touching any process.
	DryRun bool

	ChatName string
	SyncName string
}

// DefaultSettings returns the stock timings.
func DefaultSettings() Settings {
	return Settings{
		SyncWait:         5 * time.Minute,
		ProgressInterval: 10 * time.Second,
		ChatStopSettle:   2 * time.Second,
		SyncStopSettle:   3 * time.Second,
		SyncStartSettle:  3 * time.Second,
		StableTimeout:    30 * time.Second,
		ChatName:         "WeChat",
		SyncName:         "OneDrive",
	}
}

const dryRunWait = 3 * time.Second

// Orchestrator implements domain.Runner.
type Orchestrator struct {
	actions  domain.ProcessActions
	settings func() Settings
	sleep    func(ctx context.Context, d time.Duration) error

	step atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the wall-clock sleep (tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// New creates an orchestrator. settings may be nil for DefaultSettings.
func New(actions domain.ProcessActions, settings func() Settings, opts ...Option) *Orchestrator {
	if settings == nil {
		settings = DefaultSettings
	}
	o := &Orchestrator{actions: actions, settings: settings, sleep: sleepCtx}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Step returns the step of the current or most recent run.
func (o *Orchestrator) Step() domain.Step {
	return domain.Step(o.step.Load())
}

func (o *Orchestrator) enter(s domain.Step) {
	o.step.Store(int32(s))
}

// Run executes the sequence once and reports overall success.
// Progress is reported only through sink.
func (o *Orchestrator) Run(ctx context.Context, sink domain.EventSink) (ok bool) {
	log := domain.Emitter{Sink: sink, Source: "orchestrator"}
	s := o.settings()
	start := time.Now()
	o.enter(domain.StepStart)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("sync run aborted by internal error: %v", r)
			ok = false
		}
		if ok {
			o.enter(domain.StepDone)
			log.Successf("sync run finished in %s", resource.Format(time.Since(start)))
		} else {
			o.enter(domain.StepFailed)
		}
	}()

	if s.DryRun {
		return o.dryRun(ctx, log, s)
	}

	log.Infof("starting sync fix: %s and %s", s.ChatName, s.SyncName)

	if !o.stopChat(ctx, log, s) {
		return false
	}
	if !o.restartSync(ctx, log, s) {
		return false
	}
	if !o.waitForSync(ctx, log, s) {
		return false
	}
	return o.restartChat(ctx, log, s)
}

// ─── Steps ──────────────────────────────────────────────────────────────────

func (o *Orchestrator) stopChat(ctx context.Context, log domain.Emitter, s Settings) bool {
	o.enter(domain.StepStoppingChat)
	log.Infof("[1/4] stopping %s", s.ChatName)

	if err := o.actions.Stop(ctx, domain.AppChat); err != nil {
		log.Errorf("[1/4] could not stop %s, aborting: %v", s.ChatName, err)
		return false
	}
	log.Infof("[1/4] %s stopped", s.ChatName)
	return o.settle(ctx, log, s.ChatStopSettle)
}

func (o *Orchestrator) restartSync(ctx context.Context, log domain.Emitter, s Settings) bool {
	o.enter(domain.StepRestartingSync)
	log.Infof("[2/4] restarting %s", s.SyncName)

	if err := o.actions.Stop(ctx, domain.AppSync); err != nil {
		log.Warnf("[2/4] could not stop %s, starting it anyway: %v", s.SyncName, err)
	} else {
		log.Infof("[2/4] %s stopped", s.SyncName)
	}
	if !o.settle(ctx, log, s.SyncStopSettle) {
		return false
	}

	if err := o.actions.Start(ctx, domain.AppSync); err != nil {
		log.Errorf("[2/4] could not start %s, aborting: %v", s.SyncName, err)
		return false
	}
	if !o.settle(ctx, log, s.SyncStartSettle) {
		return false
	}

	if s.StableTimeout > 0 {
		if err := o.actions.WaitForStable(ctx, domain.AppSync, s.StableTimeout); err != nil {
			log.Warnf("[2/4] %s started but did not look stable: %v", s.SyncName, err)
		}
	}
	log.Infof("[2/4] %s started", s.SyncName)
	return true
}

func (o *Orchestrator) waitForSync(ctx context.Context, log domain.Emitter, s Settings) bool {
	o.enter(domain.StepWaitingForSync)
	log.Infof("[3/4] waiting %s for %s to sync", resource.Format(s.SyncWait), s.SyncName)

	interval := s.ProgressInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	for remaining := s.SyncWait; remaining > 0; {
		chunk := min(interval, remaining)
		if err := o.sleep(ctx, chunk); err != nil {
			log.Errorf("[3/4] wait interrupted: %v", err)
			return false
		}
		remaining -= chunk
		if remaining > 0 {
			log.Infof("[3/4] syncing, %s remaining", resource.Format(remaining))
		}
	}
	log.Infof("[3/4] sync window elapsed")
	return true
}

func (o *Orchestrator) restartChat(ctx context.Context, log domain.Emitter, s Settings) bool {
	o.enter(domain.StepRestartingChat)
	log.Infof("[4/4] starting %s", s.ChatName)

	if err := o.actions.Start(ctx, domain.AppChat); err != nil {
		log.Errorf("[4/4] sync fixed but %s was not restored: %v", s.ChatName, err)
		return false
	}
	log.Infof("[4/4] %s started", s.ChatName)
	return true
}

func (o *Orchestrator) dryRun(ctx context.Context, log domain.Emitter, s Settings) bool {
	log.Warnf("dry run: no process will be touched")
	log.Infof("dry run plan: stop %s, restart %s, wait %s, start %s",
		s.ChatName, s.SyncName, resource.Format(s.SyncWait), s.ChatName)
	if err := o.sleep(ctx, dryRunWait); err != nil {
		log.Errorf("dry run interrupted: %v", err)
		return false
	}
	return true
}

func (o *Orchestrator) settle(ctx context.Context, log domain.Emitter, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	if err := o.sleep(ctx, d); err != nil {
		log.Errorf("interrupted: %v", err)
		return false
	}
	return true
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait %s: %w", d, ctx.Err())
	}
}
