package cli

import (
	"fmt"
	"os"
	"strings"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// A terminal progress bar for waits the CLI follows live.
// Shows: [============>.................]  42% | idle 4m 12s / 10m 0s

const barWidth = 30 // Characters for the progress bar

// renderBar builds the bar for pct in [0,100].
func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

// progressLine overwrites the current stderr line with a bar and detail.
func progressLine(pct float64, detail string) {
	clearLine()
	fmt.Fprintf(os.Stderr, "  %s %3.0f%% | %s", renderBar(pct), clamp(pct, 0, 100), detail)
}

// statusLine overwrites the current stderr line with plain text.
func statusLine(format string, args ...interface{}) {
	clearLine()
	fmt.Fprintf(os.Stderr, "[...] "+format, args...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clearLine() {
	fmt.Fprintf(os.Stderr, "\r\033[K")
}
