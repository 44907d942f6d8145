package resource

import "time"

// tickDelta returns now-last for 32-bit millisecond tick counters. Unsigned
// subtraction handles the wrap that occurs every ~49.7 days of uptime.
func tickDelta(now, last uint32) time.Duration {
	return time.Duration(now-last) * time.Millisecond
}
