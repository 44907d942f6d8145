package domain

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the severity of a progress event.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the upper-case level name.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the level by name.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *LogLevel) UnmarshalText(b []byte) error {
	v, err := ParseLogLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLogLevel parses a level name, case-insensitive. "warn" is accepted.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "SUCCESS":
		return LevelSuccess, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LogEvent is one progress line emitted by the scheduler or orchestrator.
// It carries display information only, never control information.
type LogEvent struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Source  string    `json:"source"`
	RunID   string    `json:"run_id,omitempty"`
	Message string    `json:"message"`
}

// EventSink receives log events. Implementations must be safe for
// concurrent use: the scheduler and an orchestrator run emit in parallel.
type EventSink interface {
	Emit(ev LogEvent)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev LogEvent)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev LogEvent) { f(ev) }

// Emitter stamps events with a fixed source and run ID.
type Emitter struct {
	Sink   EventSink
	Source string
	RunID  string
}

// Logf emits a formatted event at the given level. A nil sink is ignored.
func (e Emitter) Logf(level LogLevel, format string, args ...any) {
	if e.Sink == nil {
		return
	}
	e.Sink.Emit(LogEvent{
		Time:    time.Now(),
		Level:   level,
		Source:  e.Source,
		RunID:   e.RunID,
		Message: fmt.Sprintf(format, args...),
	})
}

func (e Emitter) Debugf(format string, args ...any)   { e.Logf(LevelDebug, format, args...) }
func (e Emitter) Infof(format string, args ...any)    { e.Logf(LevelInfo, format, args...) }
func (e Emitter) Warnf(format string, args ...any)    { e.Logf(LevelWarning, format, args...) }
func (e Emitter) Errorf(format string, args ...any)   { e.Logf(LevelError, format, args...) }
func (e Emitter) Successf(format string, args ...any) { e.Logf(LevelSuccess, format, args...) }

// WithRunID returns a sink that stamps id on events that carry none.
func WithRunID(sink EventSink, id string) EventSink {
	if sink == nil {
		return nil
	}
	return SinkFunc(func(ev LogEvent) {
		if ev.RunID == "" {
			ev.RunID = id
		}
		sink.Emit(ev)
	})
}
