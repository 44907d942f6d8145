// Package cooldown owns the single "last trigger" timestamp that gates
// every automatic trigger, shared by the idle, scheduled and manual paths.
package cooldown

import (
	"sync"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
)

// Persister stores the last trigger timestamp durably.
// Implemented by infra/sqlite.DB.
type Persister interface {
	// LoadLastTrigger returns the stored timestamp; ok is false when none is set.
	LoadLastTrigger() (t time.Time, ok bool, err error)

	// SaveLastTrigger stores t, or clears the value when t is nil.
	SaveLastTrigger(t *time.Time) error
}

// Store answers "may an automatic trigger fire right now".
// All operations are serialized by one mutex covering both the
// in-memory value and its persistence.
type Store struct {
	mu      sync.Mutex
	last    *time.Time
	persist Persister
	log     domain.Emitter
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New loads the persisted timestamp. A load failure or a missing value
// means "never triggered": cooldown fails open.
func New(p Persister, sink domain.EventSink, opts ...Option) *Store {
	s := &Store{
		persist: p,
		log:     domain.Emitter{Sink: sink, Source: "cooldown"},
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if p != nil {
		t, ok, err := p.LoadLastTrigger()
		switch {
		case err != nil:
			s.log.Warnf("load cooldown state failed, assuming no cooldown: %v", err)
		case ok && !t.IsZero():
			s.last = &t
		}
	}
	return s
}

// IsInCooldown reports whether the last trigger happened less than d ago.
func (s *Store) IsInCooldown(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inCooldownLocked(d)
}

// Remaining returns how much of d is left, or zero if never triggered.
func (s *Store) Remaining(d time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(d)
}

// RecordTrigger sets the last trigger to now and persists it immediately.
// The reason is only logged.
func (s *Store) RecordTrigger(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(reason)
}

// Reset clears the last trigger and persists the empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = nil
	s.saveLocked()
	s.log.Infof("cooldown reset")
}

// CheckAndRecordIfAllowed atomically checks the cooldown and, if clear,
// records a trigger. Returns false when still cooling down.
func (s *Store) CheckAndRecordIfAllowed(d time.Duration, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inCooldownLocked(d) {
		s.log.Infof("%s rejected: cooldown active, %s remaining",
			reason, s.remainingLocked(d).Round(time.Second))
		return false
	}
	s.recordLocked(reason)
	return true
}

// LastTrigger returns the last recorded trigger time.
func (s *Store) LastTrigger() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return time.Time{}, false
	}
	return *s.last, true
}

func (s *Store) inCooldownLocked(d time.Duration) bool {
	if s.last == nil || d <= 0 {
		return false
	}
	return s.now().Sub(*s.last) < d
}

func (s *Store) remainingLocked(d time.Duration) time.Duration {
	if s.last == nil || d <= 0 {
		return 0
	}
	left := d - s.now().Sub(*s.last)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Store) recordLocked(reason string) {
	now := s.now()
	s.last = &now
	s.saveLocked()
	s.log.Debugf("cooldown recorded by %s at %s", reason, now.Format("2006-01-02 15:04:05"))
}

// saveLocked persists the current value. Failures are logged and swallowed:
// the in-memory value stays authoritative for the rest of the process.
func (s *Store) saveLocked() {
	if s.persist == nil {
		return
	}
	var t *time.Time
	if s.last != nil {
		v := *s.last
		t = &v
	}
	if err := s.persist.SaveLastTrigger(t); err != nil {
		s.log.Warnf("persist cooldown state failed: %v", err)
	}
}
