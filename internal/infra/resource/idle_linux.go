//go:build linux

package resource

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// osIdleDuration asks logind for the session's IdleSinceHint. Sessions
// without an idle hint (no idle-aware desktop) read as 0; so does a
// missing loginctl.
func osIdleDuration() time.Duration {
	hints, ok := sessionHints()
	if !ok {
		return 0
	}
	return idleFromHints(hints, time.Now())
}

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

func isScreenLocked() bool {
	hints, ok := sessionHints()
	return ok && hints["LockedHint"] == "yes"
}

// sessionHints runs loginctl show-session for the caller's session.
func sessionHints() (map[string]string, bool) {
	session := os.Getenv("XDG_SESSION_ID")
	if session == "" {
		session = "auto"
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "loginctl", "show-session", session,
		"-p", "IdleHint", "-p", "IdleSinceHint", "-p", "LockedHint").Output()
	if err != nil {
		return nil, false
	}
	return parseSessionHints(string(out)), true
}

// parseSessionHints splits loginctl's Key=Value lines.
func parseSessionHints(out string) map[string]string {
	hints := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok {
			hints[key] = value
		}
	}
	return hints
}

// idleFromHints converts IdleSinceHint (µs since the epoch) into an idle
// duration. Only meaningful while IdleHint is set.
func idleFromHints(hints map[string]string, now time.Time) time.Duration {
	if hints["IdleHint"] != "yes" {
		return 0
	}
	usec, err := strconv.ParseInt(hints["IdleSinceHint"], 10, 64)
	if err != nil || usec <= 0 {
		return 0
	}
	since := time.UnixMicro(usec)
	if since.After(now) {
		return 0
	}
	return now.Sub(since)
}
