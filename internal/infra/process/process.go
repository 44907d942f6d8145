// Package process discovers, stops and starts the chat and sync
// applications through the operating system's process tools.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
)

// AppSpec describes how to find and launch one application.
type AppSpec struct {
	Name   string   // display name, e.g. "OneDrive"
	Images []string // process image names, e.g. "OneDrive.exe"
	Paths  []string // candidate executables; %VAR%, $VAR and ~ are expanded
	Args   []string // start arguments, e.g. "/background"
}

// Config tunes the controller.
type Config struct {
	Apps map[domain.AppID]AppSpec

	CommandTimeout time.Duration // bound on every tasklist/taskkill call
	StopGrace      time.Duration // graceful stop window before force kill
	StartTimeout   time.Duration // how long Start waits to see the process
	PollInterval   time.Duration
}

// DefaultTimings returns the stock command timeouts and poll interval.
func DefaultTimings() Config {
	return Config{
		CommandTimeout: 5 * time.Second,
		StopGrace:      5 * time.Second,
		StartTimeout:   10 * time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// Commander runs OS commands. execCommander is the real implementation;
// tests substitute a scripted one.
type Commander interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Launch(path string, args []string) error
}

// Controller implements domain.ProcessActions.
type Controller struct {
	cfg  Config
	cmd  Commander
	plat platform
}

// NewController creates a controller for the host operating system.
func NewController(cfg Config) *Controller {
	return newController(cfg, execCommander{}, hostPlatform())
}

func newController(cfg Config, cmd Commander, plat platform) *Controller {
	def := DefaultTimings()
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = def.StartTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Controller{cfg: cfg, cmd: cmd, plat: plat}
}

// Name returns the configured display name of app.
func (c *Controller) Name(app domain.AppID) string {
	if spec, ok := c.cfg.Apps[app]; ok && spec.Name != "" {
		return spec.Name
	}
	return string(app)
}

func (c *Controller) spec(app domain.AppID) (AppSpec, error) {
	spec, ok := c.cfg.Apps[app]
	if !ok || len(spec.Images) == 0 {
		return AppSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownApp, app)
	}
	return spec, nil
}

// ─── Discovery ──────────────────────────────────────────────────────────────

// IsRunning reports whether any of the app's images has a live process.
func (c *Controller) IsRunning(ctx context.Context, app domain.AppID) (bool, error) {
	spec, err := c.spec(app)
	if err != nil {
		return false, err
	}
	for _, image := range spec.Images {
		running, err := c.imageRunning(ctx, image)
		if err != nil {
			return false, err
		}
		if running {
			return true, nil
		}
	}
	return false, nil
}

func (c *Controller) imageRunning(ctx context.Context, image string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	name, args := c.plat.listCmd(image)
	out, err := c.cmd.Output(ctx, name, args...)
	if err != nil {
		if code, ok := exitCode(err); ok && code == c.plat.noMatchExit {
			return false, nil
		}
		return false, fmt.Errorf("query %s: %w", image, err)
	}
	return c.plat.parseList(out, image), nil
}

// States returns the running state of every configured app.
func (c *Controller) States(ctx context.Context) []domain.AppState {
	states := make([]domain.AppState, 0, len(domain.Apps))
	for _, app := range domain.Apps {
		st := domain.AppState{App: app, Name: c.Name(app)}
		running, err := c.IsRunning(ctx, app)
		if err != nil {
			st.Error = err.Error()
		}
		st.Running = running
		states = append(states, st)
	}
	return states
}

// ─── Stop ───────────────────────────────────────────────────────────────────

// Stop asks every image of the app to exit, then force-kills whatever is
// left after the grace period. Stopping an app that is not running succeeds.
func (c *Controller) Stop(ctx context.Context, app domain.AppID) error {
	spec, err := c.spec(app)
	if err != nil {
		return err
	}

	running, err := c.IsRunning(ctx, app)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	c.killAll(ctx, spec, false)
	if gone, err := c.waitFor(ctx, app, false, c.cfg.StopGrace); err != nil || gone {
		return err
	}

	c.killAll(ctx, spec, true)
	if gone, err := c.waitFor(ctx, app, false, c.cfg.StopGrace); err != nil || gone {
		return err
	}
	return fmt.Errorf("%w: %s still running after force kill", domain.ErrStopFailed, c.Name(app))
}

// killAll signals every image. Errors are ignored: "no such process" is
// reported as a failure by taskkill and pkill alike, and the follow-up
// poll decides the outcome.
func (c *Controller) killAll(ctx context.Context, spec AppSpec, force bool) {
	for _, image := range spec.Images {
		kctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
		name, args := c.plat.killCmd(image, force)
		c.cmd.Output(kctx, name, args...) //nolint:errcheck
		cancel()
	}
}

// ─── Start ──────────────────────────────────────────────────────────────────

// Start launches the app detached and waits until it shows up in the
// process list. Starting an app that is already running succeeds.
func (c *Controller) Start(ctx context.Context, app domain.AppID) error {
	spec, err := c.spec(app)
	if err != nil {
		return err
	}

	running, err := c.IsRunning(ctx, app)
	if err != nil {
		return err
	}
	if running {
		return nil
	}

	path, err := c.Executable(app)
	if err != nil {
		return err
	}
	if err := c.cmd.Launch(path, spec.Args); err != nil {
		return fmt.Errorf("%w: launch %s: %v", domain.ErrStartFailed, path, err)
	}

	up, err := c.waitFor(ctx, app, true, c.cfg.StartTimeout)
	if err != nil {
		return err
	}
	if !up {
		return fmt.Errorf("%w: %s not running %s after launch",
			domain.ErrStartFailed, c.Name(app), c.cfg.StartTimeout)
	}
	return nil
}

// Executable resolves the first existing candidate path, then falls back
// to looking the image name up on PATH.
func (c *Controller) Executable(app domain.AppID) (string, error) {
	spec, err := c.spec(app)
	if err != nil {
		return "", err
	}
	for _, p := range spec.Paths {
		p = expandPath(p)
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	for _, image := range spec.Images {
		if p, err := exec.LookPath(image); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrAppNotFound, c.Name(app))
}

// ─── Stability ──────────────────────────────────────────────────────────────

// WaitForStable returns once the app has been seen running on two
// consecutive polls.
func (c *Controller) WaitForStable(ctx context.Context, app domain.AppID, timeout time.Duration) error {
	if _, err := c.spec(app); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	streak := 0
	for {
		running, err := c.IsRunning(ctx, app)
		switch {
		case err != nil, !running:
			streak = 0
		default:
			streak++
		}
		if streak >= 2 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s within %s", domain.ErrNotStable, c.Name(app), timeout)
		case <-ticker.C:
		}
	}
}

// waitFor polls until the app's running state equals want or timeout
// elapses. Returns whether the state was reached.
func (c *Controller) waitFor(ctx context.Context, app domain.AppID, want bool, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		running, err := c.IsRunning(ctx, app)
		if err == nil && running == want {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

var winEnvVar = regexp.MustCompile(`%([A-Za-z0-9_()]+)%`)

// expandPath expands %VAR%, $VAR and a leading ~ in a candidate path.
// A path referencing an unset %VAR% expands to "".
func expandPath(p string) string {
	missing := false
	p = winEnvVar.ReplaceAllStringFunc(p, func(m string) string {
		v, ok := os.LookupEnv(m[1 : len(m)-1])
		if !ok {
			missing = true
		}
		return v
	})
	if missing {
		return ""
	}
	p = os.ExpandEnv(p)

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		p = filepath.Join(home, p[1:])
	}
	return p
}

func exitCode(err error) (int, bool) {
	var ee interface{ ExitCode() int }
	if errors.As(err, &ee) {
		return ee.ExitCode(), true
	}
	return 0, false
}

// execCommander runs real OS commands.
type execCommander struct{}

func (execCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	configureQuery(cmd)
	return cmd.Output()
}

func (execCommander) Launch(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	configureDetached(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}
	// The app outlives syncfix; never Wait on it.
	return cmd.Process.Release()
}
