package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syncfix/syncfix/internal/api"
	"github.com/syncfix/syncfix/internal/daemon"
	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/resource"
)

// newClient builds an API client for the daemon named in the config file.
func newClient() (*api.Client, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.API.Host, cfg.API.Port), nil
}

// interruptContext is cancelled on SIGINT/SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// formatSeconds renders a seconds count as "4m 12s".
func formatSeconds(s float64) string {
	return resource.Format(time.Duration(s * float64(time.Second)))
}

// formatTime renders an optional timestamp.
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// lastResult describes the last run outcome.
func lastResult(st domain.Status) string {
	switch {
	case st.LastRunAt == nil:
		return "no run yet"
	case st.LastSuccess:
		return "success"
	default:
		return "failed"
	}
}

// printEvent writes one log event as a console line.
func printEvent(ev domain.LogEvent) {
	fmt.Printf("%s [%-7s] %-12s %s\n",
		ev.Time.Local().Format("15:04:05"), ev.Level, ev.Source, ev.Message)
}
