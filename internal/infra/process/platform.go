package process

import (
	"bytes"
	"encoding/csv"
	"runtime"
	"strings"
)

// platform holds the OS-specific command lines. Both variants are plain
// data so they can be exercised on any host.
type platform struct {
	listCmd     func(image string) (string, []string)
	parseList   func(out []byte, image string) bool
	killCmd     func(image string, force bool) (string, []string)
	noMatchExit int // exit code meaning "no such process", or -1
}

func hostPlatform() platform {
	if runtime.GOOS == "windows" {
		return windowsPlatform
	}
	return unixPlatform
}

var windowsPlatform = platform{
	listCmd: func(image string) (string, []string) {
		return "tasklist", []string{"/fi", "imagename eq " + image, "/fo", "csv", "/nh"}
	},
	parseList: parseTasklist,
	killCmd: func(image string, force bool) (string, []string) {
		if force {
			return "taskkill", []string{"/f", "/im", image}
		}
		return "taskkill", []string{"/im", image}
	},
	noMatchExit: -1,
}

var unixPlatform = platform{
	listCmd: func(image string) (string, []string) {
		return "pgrep", []string{"-x", image}
	},
	parseList: func(out []byte, _ string) bool {
		return len(bytes.TrimSpace(out)) > 0
	},
	killCmd: func(image string, force bool) (string, []string) {
		if force {
			return "pkill", []string{"-9", "-x", image}
		}
		return "pkill", []string{"-x", image}
	},
	noMatchExit: 1,
}

// parseTasklist reports whether `tasklist /fo csv /nh` output lists image.
// With no match tasklist prints an INFO line instead of CSV rows.
func parseTasklist(out []byte, image string) bool {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return false
	}
	for _, rec := range records {
		if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), image) {
			return true
		}
	}
	return false
}
