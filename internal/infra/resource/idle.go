// Package resource samples system-wide user input idle time.
package resource

import (
	"fmt"
	"sync"
	"time"
)

// probeTimeout bounds every external command an OS probe runs.
const probeTimeout = 5 * time.Second

// IdleDetector reports how long the machine has gone without keyboard or
// mouse input. Uses platform-specific APIs (Windows GetLastInputInfo, macOS
// ioreg HIDIdleTime, Linux logind session hints) wrapped behind
// osIdleDuration(). It never fails: any probe error or panic reads as 0.
type IdleDetector struct {
	probe func() time.Duration

	mu       sync.RWMutex
	last     time.Duration
	lastRead time.Time
}

// NewIdleDetector creates an idle detector backed by the OS probe.
func NewIdleDetector() *IdleDetector {
	return &IdleDetector{probe: osIdleDuration}
}

// newIdleDetectorWith is used by tests to script the probe.
func newIdleDetectorWith(probe func() time.Duration) *IdleDetector {
	return &IdleDetector{probe: probe}
}

// IdleDuration returns the current raw idle duration from the OS.
func (d *IdleDetector) IdleDuration() time.Duration {
	idle := d.sample()

	d.mu.Lock()
	d.last = idle
	d.lastRead = time.Now()
	d.mu.Unlock()
	return idle
}

// IdleSeconds returns the idle duration in seconds, >= 0.
func (d *IdleDetector) IdleSeconds() float64 {
	return d.IdleDuration().Seconds()
}

// Last returns the most recent sample without probing the OS again.
func (d *IdleDetector) Last() (time.Duration, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.lastRead
}

// ScreenLocked reports whether the interactive session is locked.
// Informational only; it does not affect idle triggering.
func (d *IdleDetector) ScreenLocked() bool {
	return hasDisplay() && isScreenLocked()
}

func (d *IdleDetector) sample() (idle time.Duration) {
	defer func() {
		if recover() != nil {
			idle = 0
		}
	}()
	idle = d.probe()
	if idle < 0 {
		return 0
	}
	return idle
}

// Format renders a duration as "1h 2m 3s", dropping leading zero units.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
