// Package health provides periodic health checks with auto-recovery.
// Results feed GET /health and the syncfix_health_check_status gauge.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/metrics"
)

// Check defines a single health check with optional recovery action.
// A failing Advisory check is reported but does not make the daemon
// unhealthy.
type Check struct {
	Name      string
	Advisory  bool
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Advisory  bool      `json:"advisory,omitempty"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is the state database. Implemented by infra/sqlite.DB.
type Pinger interface {
	Ping() error
}

// Locator resolves an application executable.
// Implemented by infra/process.Controller.
type Locator interface {
	Executable(app domain.AppID) (string, error)
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      domain.Emitter
}

// NewChecker creates a health checker with the standard checks: the state
// database, the data directory and one advisory check per application.
func NewChecker(db Pinger, apps Locator, homeDir string, sink domain.EventSink) *Checker {
	c := &Checker{
		interval: 60 * time.Second,
		log:      domain.Emitter{Sink: sink, Source: "health"},
		checks: []Check{
			{
				Name: "state_db",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "home_dir",
				CheckFn: func(ctx context.Context) error {
					return checkDir(homeDir)
				},
				RecoverFn: func(ctx context.Context) error {
					return os.MkdirAll(homeDir, 0700)
				},
			},
		},
	}
	for _, app := range domain.Apps {
		app := app
		c.checks = append(c.checks, Check{
			Name:     string(app) + "_executable",
			Advisory: true,
			CheckFn: func(ctx context.Context) error {
				_, err := apps.Executable(app)
				return err
			},
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

// RunOnce runs every check now and returns the results.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	c.runAll(ctx)
	return c.Statuses()
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			Advisory:  check.Advisory,
			CheckedAt: time.Now(),
		}
		err := check.CheckFn(ctx)
		if err != nil && check.RecoverFn != nil {
			metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
			if rerr := check.RecoverFn(ctx); rerr == nil {
				if err = check.CheckFn(ctx); err == nil {
					s.Recovered = true
					c.log.Infof("%s recovered", check.Name)
				}
			}
		}
		if err != nil {
			s.Error = err.Error()
			if check.Advisory {
				c.log.Debugf("%s: %v", check.Name, err)
			} else {
				c.log.Warnf("%s unhealthy: %v", check.Name, err)
			}
		} else {
			s.Healthy = true
		}

		gauge := 0.0
		if s.Healthy {
			gauge = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(gauge)
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if every non-advisory check passes.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy && !s.Advisory {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
