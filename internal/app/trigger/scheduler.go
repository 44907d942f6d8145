package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/metrics"
)

const (
	// scheduledCheckEvery throttles the wall-clock check.
	scheduledCheckEvery = 60 * time.Second
	// scheduledTolerance is the ±window around the configured HH:MM.
	scheduledTolerance = 60 * time.Second
	// idleDebugEvery rate-limits the idle-vs-threshold debug line.
	idleDebugEvery = 30 * time.Second

	defaultErrorBackoff = 60 * time.Second
)

// Scheduler is the background polling loop. All its state is owned by the
// loop goroutine; nothing else writes it.
type Scheduler struct {
	coord  *Coordinator
	config domain.ConfigSource
	idle   domain.IdleSampler
	log    domain.Emitter
	now    func() time.Time

	idleMet       bool      // idle condition met on the previous poll
	lastSchedTick time.Time // last scheduled check
	lastSlot      time.Time // last scheduled slot that fired or was suppressed
	lastIdleDebug time.Time

	sched    *Schedule
	schedKey string
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides time.Now (tests).
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates the polling loop.
func NewScheduler(coord *Coordinator, config domain.ConfigSource, idle domain.IdleSampler,
	sink domain.EventSink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		coord:  coord,
		config: config,
		idle:   idle,
		log:    domain.Emitter{Sink: sink, Source: "scheduler"},
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run polls until ctx is cancelled. Call in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infof("trigger scheduler started")
	defer s.log.Infof("trigger scheduler stopped")

	for {
		wait := s.safeTick()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// safeTick runs one iteration and returns how long to sleep. A panic or
// error inside the iteration is logged and answered with the error backoff.
func (s *Scheduler) safeTick() (wait time.Duration) {
	var cfg domain.TriggerConfig

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("scheduler iteration crashed: %v", r)
			metrics.SchedulerErrors.Inc()
			wait = cfg.ErrorBackoff
			if wait <= 0 {
				wait = defaultErrorBackoff
			}
		}
		if wait <= 0 {
			wait = time.Second
		}
	}()

	cfg = s.config.TriggerConfig()
	wait, err := s.tick(cfg)
	if err != nil {
		s.log.Errorf("scheduler iteration failed: %v", err)
		metrics.SchedulerErrors.Inc()
		return cfg.ErrorBackoff
	}
	return wait
}

// tick performs one poll against the given config snapshot.
func (s *Scheduler) tick(cfg domain.TriggerConfig) (time.Duration, error) {
	now := s.now()

	if !cfg.AnyEnabled() {
		s.idleMet = false
		return cfg.DisabledInterval, nil
	}

	if cfg.ScheduledTriggerEnabled {
		if err := s.checkScheduled(cfg, now); err != nil {
			return 0, err
		}
	}

	if cfg.IdleTriggerEnabled {
		s.checkIdle(cfg, now)
	} else {
		s.idleMet = false
	}
	return cfg.PollInterval, nil
}

// checkScheduled fires the scheduled trigger at most once per slot.
func (s *Scheduler) checkScheduled(cfg domain.TriggerConfig, now time.Time) error {
	if !s.lastSchedTick.IsZero() {
		if since := now.Sub(s.lastSchedTick); since >= 0 && since < scheduledCheckEvery {
			return nil
		}
	}
	s.lastSchedTick = now

	sched, err := s.schedule(cfg)
	if err != nil {
		return err
	}
	slot, ok := sched.Match(now, scheduledTolerance)
	if !ok || slot.Equal(s.lastSlot) {
		return nil
	}
	s.lastSlot = slot

	s.log.Infof("scheduled time %s reached", cfg.ScheduledTime)
	s.coord.tryDispatch(domain.SourceScheduled, cfg.Cooldown)
	return nil
}

// checkIdle fires on the not-met → met transition only. The edge is
// consumed whether or not the trigger was allowed to run.
func (s *Scheduler) checkIdle(cfg domain.TriggerConfig, now time.Time) {
	idle := s.idle.IdleSeconds()
	metrics.IdleSeconds.Set(idle)

	threshold := cfg.IdleThreshold.Seconds()
	met := idle >= threshold

	if now.Sub(s.lastIdleDebug) >= idleDebugEvery || now.Before(s.lastIdleDebug) {
		s.lastIdleDebug = now
		s.log.Debugf("idle %.0fs / threshold %.0fs", idle, threshold)
	}

	if met && !s.idleMet {
		s.log.Infof("idle for %.0fs, threshold %.0fs reached", idle, threshold)
		s.coord.tryDispatch(domain.SourceIdle, cfg.Cooldown)
	}
	s.idleMet = met
}

// schedule returns the cached schedule, rebuilding it when the configured
// time or days change.
func (s *Scheduler) schedule(cfg domain.TriggerConfig) (*Schedule, error) {
	key := fmt.Sprintf("%s %v", cfg.ScheduledTime, cfg.ScheduledDays)
	if s.sched != nil && key == s.schedKey {
		return s.sched, nil
	}
	sched, err := NewSchedule(cfg.ScheduledTime, cfg.ScheduledDays)
	if err != nil {
		return nil, err
	}
	s.sched, s.schedKey = sched, key
	s.log.Debugf("scheduled trigger pattern %q, next at %s",
		sched, sched.Next(s.now()).Format("2006-01-02 15:04"))
	return sched, nil
}
