//go:build linux

package resource

import (
	"testing"
	"time"
)

func TestParseSessionHints(t *testing.T) {
	hints := parseSessionHints("IdleHint=yes\nIdleSinceHint=1772400000000000\nLockedHint=no\n")
	if hints["IdleHint"] != "yes" || hints["LockedHint"] != "no" {
		t.Errorf("hints = %v", hints)
	}
	if hints["IdleSinceHint"] != "1772400000000000" {
		t.Errorf("IdleSinceHint = %q", hints["IdleSinceHint"])
	}
}

func TestIdleFromHints(t *testing.T) {
	since := time.UnixMicro(1772400000000000)
	now := since.Add(90 * time.Second)

	idle := map[string]string{"IdleHint": "yes", "IdleSinceHint": "1772400000000000"}
	if got := idleFromHints(idle, now); got != 90*time.Second {
		t.Errorf("idleFromHints() = %v, want 90s", got)
	}

	active := map[string]string{"IdleHint": "no", "IdleSinceHint": "1772400000000000"}
	if got := idleFromHints(active, now); got != 0 {
		t.Errorf("active session = %v, want 0", got)
	}

	if got := idleFromHints(map[string]string{"IdleHint": "yes", "IdleSinceHint": "0"}, now); got != 0 {
		t.Errorf("zero hint = %v, want 0", got)
	}
	if got := idleFromHints(idle, since.Add(-time.Second)); got != 0 {
		t.Errorf("hint in the future = %v, want 0", got)
	}
}
