// Package eventlog provides domain.EventSink implementations: a logrus
// writer, a bounded in-memory history, a fan-out and a test recorder.
package eventlog

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/syncfix/syncfix/internal/domain"
)

// ─── Logrus ─────────────────────────────────────────────────────────────────

// LogrusSink writes events through a logrus logger.
type LogrusSink struct {
	log logrus.FieldLogger
}

// NewLogrusSink wraps a logger.
func NewLogrusSink(log logrus.FieldLogger) *LogrusSink {
	return &LogrusSink{log: log}
}

// Emit maps the event level onto logrus. SUCCESS logs at info with
// success=true.
func (s *LogrusSink) Emit(ev domain.LogEvent) {
	fields := logrus.Fields{"source": ev.Source}
	if ev.RunID != "" {
		fields["run_id"] = ev.RunID
	}
	entry := s.log.WithFields(fields)

	switch ev.Level {
	case domain.LevelDebug:
		entry.Debug(ev.Message)
	case domain.LevelWarning:
		entry.Warn(ev.Message)
	case domain.LevelError:
		entry.Error(ev.Message)
	case domain.LevelSuccess:
		entry.WithField("success", true).Info(ev.Message)
	default:
		entry.Info(ev.Message)
	}
}

// ─── Ring ───────────────────────────────────────────────────────────────────

// Ring keeps the most recent events for the logs API.
type Ring struct {
	mu     sync.Mutex
	buf    []domain.LogEvent
	next   int
	full   bool
	minLvl domain.LogLevel
}

// NewRing creates a ring holding up to size events at or above minLevel.
func NewRing(size int, minLevel domain.LogLevel) *Ring {
	if size <= 0 {
		size = 500
	}
	return &Ring{buf: make([]domain.LogEvent, size), minLvl: minLevel}
}

// Emit stores the event, overwriting the oldest when full.
func (r *Ring) Emit(ev domain.LogEvent) {
	if ev.Level < r.minLvl {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = ev
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns up to limit events, oldest first. limit <= 0 returns all.
func (r *Ring) Recent(limit int) []domain.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.LogEvent
	if r.full {
		all = append(all, r.buf[r.next:]...)
	}
	all = append(all, r.buf[:r.next]...)

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

// ─── Fanout ─────────────────────────────────────────────────────────────────

// Fanout delivers every event to each sink in order.
type Fanout []domain.EventSink

// Emit forwards ev to all non-nil sinks.
func (f Fanout) Emit(ev domain.LogEvent) {
	for _, s := range f {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// ─── Recorder ───────────────────────────────────────────────────────────────

// Recorder captures events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []domain.LogEvent
}

// Emit appends ev.
func (r *Recorder) Emit(ev domain.LogEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []domain.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LogEvent(nil), r.events...)
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Message
	}
	return out
}

// Count returns how many events were recorded at level.
func (r *Recorder) Count(level domain.LogLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Level == level {
			n++
		}
	}
	return n
}
