//go:build !linux && !darwin && !windows

package resource

import "time"

// osIdleDuration is unsupported on this platform; the machine always
// reads as active.
func osIdleDuration() time.Duration { return 0 }

func hasDisplay() bool { return false }

func isScreenLocked() bool { return false }
