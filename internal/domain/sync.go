// Package domain holds the pure types shared by every syncfix layer.
// Nothing here touches the OS, the disk or the network.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Applications ───────────────────────────────────────────────────────────

// AppID names one of the two applications syncfix controls.
type AppID string

const (
	AppChat AppID = "chat" // desktop chat application (WeChat)
	AppSync AppID = "sync" // cloud-sync client (OneDrive)
)

// Apps lists every known application in orchestration order.
var Apps = []AppID{AppChat, AppSync}

// ParseAppID validates a user-supplied application identifier.
func ParseAppID(s string) (AppID, error) {
	switch AppID(strings.ToLower(strings.TrimSpace(s))) {
	case AppChat:
		return AppChat, nil
	case AppSync:
		return AppSync, nil
	}
	return "", fmt.Errorf("%w: %q (want chat or sync)", ErrUnknownApp, s)
}

// AppState reports whether an application is currently running.
type AppState struct {
	App     AppID  `json:"app"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// ─── Orchestrator Steps ─────────────────────────────────────────────────────

// Step is a state of the four-step remediation sequence.
// The sequence is linear: it only ever moves forward or to StepFailed.
type Step int

const (
	StepStart Step = iota
	StepStoppingChat
	StepRestartingSync
	StepWaitingForSync
	StepRestartingChat
	StepDone
	StepFailed
)

// String returns the upper-case step name used in logs and the status API.
func (s Step) String() string {
	switch s {
	case StepStart:
		return "START"
	case StepStoppingChat:
		return "STOPPING_CHAT"
	case StepRestartingSync:
		return "RESTARTING_SYNC"
	case StepWaitingForSync:
		return "WAITING_FOR_SYNC"
	case StepRestartingChat:
		return "RESTARTING_CHAT"
	case StepDone:
		return "DONE"
	case StepFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(b []byte) error {
	for st := StepStart; st <= StepFailed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// ─── Trigger Sources ────────────────────────────────────────────────────────

// TriggerSource identifies which path started an orchestrator run.
type TriggerSource string

const (
	SourceIdle      TriggerSource = "idle"
	SourceScheduled TriggerSource = "scheduled"
	SourceManual    TriggerSource = "manual"
)

// ─── Trigger Configuration ──────────────────────────────────────────────────

// TimeOfDay is a wall-clock HH:MM in local time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseWeekday accepts full English day names and three-letter abbreviations.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// TriggerConfig is the immutable snapshot the scheduler reads every poll.
type TriggerConfig struct {
	IdleTriggerEnabled bool
	IdleThreshold      time.Duration

	ScheduledTriggerEnabled bool
	ScheduledTime           TimeOfDay
	ScheduledDays           []time.Weekday // empty means daily

	// Cooldown is shared by the idle and scheduled triggers.
	Cooldown time.Duration

	SyncWait         time.Duration
	MaxRetryAttempts int // advisory unless the retry layer is enabled

	PollInterval     time.Duration
	DisabledInterval time.Duration
	ErrorBackoff     time.Duration
}

// Daily reports whether the scheduled trigger fires every day.
func (c TriggerConfig) Daily() bool {
	return len(c.ScheduledDays) == 0
}

// AnyEnabled reports whether at least one automatic trigger is on.
func (c TriggerConfig) AnyEnabled() bool {
	return c.IdleTriggerEnabled || c.ScheduledTriggerEnabled
}

// ─── Run Statistics & Status ────────────────────────────────────────────────

// RunStats aggregates orchestrator outcomes since process start.
type RunStats struct {
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	LastRunAt    time.Time `json:"last_run_at"`
	LastSuccess  bool      `json:"last_success"`
	LastSource   string    `json:"last_source,omitempty"`
}

// Status is the snapshot served to the CLI and any front-end.
type Status struct {
	RunInProgress     bool       `json:"run_in_progress"`
	CurrentStep       Step       `json:"current_step"`
	RunID             string     `json:"run_id,omitempty"`
	CooldownRemaining float64    `json:"cooldown_remaining_seconds"`
	LastTriggerAt     *time.Time `json:"last_trigger_at,omitempty"`
	LastRunAt         *time.Time `json:"last_run_at,omitempty"`
	LastSuccess       bool       `json:"last_success"`
	SuccessCount      int        `json:"success_count"`
	ErrorCount        int        `json:"error_count"`
	IdleSeconds       float64    `json:"idle_seconds"`
	IdleEnabled       bool       `json:"idle_trigger_enabled"`
	ScheduledEnabled  bool       `json:"scheduled_trigger_enabled"`
}
