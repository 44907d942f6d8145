package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
)

// fakeOS is a scripted Commander speaking the unix pgrep/pkill dialect.
type fakeOS struct {
	mu           sync.Mutex
	running      map[string]bool
	stubborn     bool // ignores graceful kill
	launchImage  string
	launchErr    error
	launchNoShow bool
	calls        []string
}

type exitErr int

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return int(e) }

func (f *fakeOS) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))

	image := args[len(args)-1]
	switch name {
	case "pgrep":
		if f.running[image] {
			return []byte("4242\n"), nil
		}
		return nil, exitErr(1)
	case "pkill":
		if !f.running[image] {
			return nil, exitErr(1)
		}
		force := args[0] == "-9"
		if force || !f.stubborn {
			f.running[image] = false
		}
		return nil, nil
	}
	return nil, errors.New("unexpected command " + name)
}

func (f *fakeOS) Launch(path string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "launch "+path+" "+strings.Join(args, " "))
	if f.launchErr != nil {
		return f.launchErr
	}
	if !f.launchNoShow {
		f.running[f.launchImage] = true
	}
	return nil
}

func (f *fakeOS) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func newTestController(t *testing.T, f *fakeOS) *Controller {
	t.Helper()
	exe := filepath.Join(t.TempDir(), "onedrive")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if f.running == nil {
		f.running = map[string]bool{}
	}
	f.launchImage = "onedrive"

	cfg := Config{
		Apps: map[domain.AppID]AppSpec{
			domain.AppChat: {Name: "WeChat", Images: []string{"weixin"}},
			domain.AppSync: {
				Name:   "OneDrive",
				Images: []string{"onedrive", "sharepoint"},
				Paths:  []string{"%SYNCFIX_TEST_UNSET_VAR%/x", exe},
				Args:   []string{"/background"},
			},
		},
		CommandTimeout: time.Second,
		StopGrace:      50 * time.Millisecond,
		StartTimeout:   50 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}
	return newController(cfg, f, unixPlatform)
}

// ─── Discovery ──────────────────────────────────────────────────────────────

func TestIsRunning(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"sharepoint": true}}
	c := newTestController(t, f)
	ctx := context.Background()

	running, err := c.IsRunning(ctx, domain.AppSync)
	if err != nil || !running {
		t.Errorf("IsRunning(sync) = %v, %v; want true (second image)", running, err)
	}
	running, err = c.IsRunning(ctx, domain.AppChat)
	if err != nil || running {
		t.Errorf("IsRunning(chat) = %v, %v; want false", running, err)
	}
}

func TestIsRunning_UnknownApp(t *testing.T) {
	c := newTestController(t, &fakeOS{})
	_, err := c.IsRunning(context.Background(), domain.AppID("mail"))
	if !errors.Is(err, domain.ErrUnknownApp) {
		t.Errorf("error = %v, want ErrUnknownApp", err)
	}
}

func TestStates(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"weixin": true}}
	c := newTestController(t, f)

	states := c.States(context.Background())
	if len(states) != 2 {
		t.Fatalf("States() len = %d, want 2", len(states))
	}
	if !states[0].Running || states[0].Name != "WeChat" {
		t.Errorf("chat state = %+v", states[0])
	}
	if states[1].Running {
		t.Errorf("sync state = %+v, want not running", states[1])
	}
}

// ─── Stop ───────────────────────────────────────────────────────────────────

func TestStop_NotRunning(t *testing.T) {
	f := &fakeOS{}
	c := newTestController(t, f)

	if err := c.Stop(context.Background(), domain.AppChat); err != nil {
		t.Fatalf("Stop() on stopped app error: %v", err)
	}
	if f.called("pkill") {
		t.Error("Stop() should not signal a stopped app")
	}
}

func TestStop_Graceful(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"weixin": true}}
	c := newTestController(t, f)

	if err := c.Stop(context.Background(), domain.AppChat); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if f.called("pkill -9") {
		t.Error("graceful stop should not escalate")
	}
}

func TestStop_ForceAfterGrace(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"weixin": true}, stubborn: true}
	c := newTestController(t, f)

	if err := c.Stop(context.Background(), domain.AppChat); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !f.called("pkill -9 -x weixin") {
		t.Error("stubborn app should be force killed")
	}
}

// ─── Start ──────────────────────────────────────────────────────────────────

func TestStart_Launches(t *testing.T) {
	f := &fakeOS{}
	c := newTestController(t, f)

	if err := c.Start(context.Background(), domain.AppSync); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !f.called("launch " + mustExe(t, c) + " /background") {
		t.Errorf("launch calls = %v", f.calls)
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"onedrive": true}}
	c := newTestController(t, f)

	if err := c.Start(context.Background(), domain.AppSync); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if f.called("launch") {
		t.Error("Start() should not relaunch a running app")
	}
}

func TestStart_NeverAppears(t *testing.T) {
	f := &fakeOS{launchNoShow: true}
	c := newTestController(t, f)

	err := c.Start(context.Background(), domain.AppSync)
	if !errors.Is(err, domain.ErrStartFailed) {
		t.Errorf("error = %v, want ErrStartFailed", err)
	}
}

func TestStart_NotFound(t *testing.T) {
	c := newTestController(t, &fakeOS{})

	// chat has no candidate paths and "weixin" is not on PATH
	err := c.Start(context.Background(), domain.AppChat)
	if !errors.Is(err, domain.ErrAppNotFound) {
		t.Errorf("error = %v, want ErrAppNotFound", err)
	}
}

func mustExe(t *testing.T, c *Controller) string {
	t.Helper()
	p, err := c.Executable(domain.AppSync)
	if err != nil {
		t.Fatalf("Executable() error: %v", err)
	}
	return p
}

// ─── Stability ──────────────────────────────────────────────────────────────

func TestWaitForStable(t *testing.T) {
	f := &fakeOS{running: map[string]bool{"onedrive": true}}
	c := newTestController(t, f)

	if err := c.WaitForStable(context.Background(), domain.AppSync, time.Second); err != nil {
		t.Fatalf("WaitForStable() error: %v", err)
	}
}

func TestWaitForStable_Timeout(t *testing.T) {
	c := newTestController(t, &fakeOS{})

	err := c.WaitForStable(context.Background(), domain.AppSync, 30*time.Millisecond)
	if !errors.Is(err, domain.ErrNotStable) {
		t.Errorf("error = %v, want ErrNotStable", err)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func TestParseTasklist(t *testing.T) {
	out := []byte(`"OneDrive.exe","10244","Console","1","45,112 K"` + "\r\n" +
		`"OneDrive.exe","11812","Console","1","12,004 K"` + "\r\n")
	if !parseTasklist(out, "onedrive.exe") {
		t.Error("parseTasklist should match case-insensitively")
	}

	none := []byte("INFO: No tasks are running which match the specified criteria.\r\n")
	if parseTasklist(none, "OneDrive.exe") {
		t.Error("INFO line should not match")
	}
}

func TestWindowsCommands(t *testing.T) {
	name, args := windowsPlatform.killCmd("Weixin.exe", true)
	if name != "taskkill" || strings.Join(args, " ") != "/f /im Weixin.exe" {
		t.Errorf("force kill = %s %v", name, args)
	}
	name, args = windowsPlatform.listCmd("Weixin.exe")
	if name != "tasklist" || args[1] != "imagename eq Weixin.exe" {
		t.Errorf("list = %s %v", name, args)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("SYNCFIX_TEST_DIR", "/opt/apps")

	if got := expandPath("%SYNCFIX_TEST_DIR%/OneDrive.exe"); got != "/opt/apps/OneDrive.exe" {
		t.Errorf("expandPath(%%VAR%%) = %q", got)
	}
	if got := expandPath("$SYNCFIX_TEST_DIR/x"); got != "/opt/apps/x" {
		t.Errorf("expandPath($VAR) = %q", got)
	}
	if got := expandPath("%SYNCFIX_TEST_UNSET_VAR%/x"); got != "" {
		t.Errorf("expandPath(unset) = %q, want empty", got)
	}
	home, _ := os.UserHomeDir()
	if got := expandPath("~/bin/app"); got != filepath.Join(home, "bin/app") {
		t.Errorf("expandPath(~) = %q", got)
	}
}
