package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/eventlog"
)

// fakeActions records calls and fails the ones listed in errs
// ("stop:chat", "start:sync", ...).
type fakeActions struct {
	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	panicOn string
}

func (f *fakeActions) do(op string, app domain.AppID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + ":" + string(app)
	f.calls = append(f.calls, key)
	if key == f.panicOn {
		panic("boom in " + key)
	}
	return f.errs[key]
}

func (f *fakeActions) IsRunning(_ context.Context, app domain.AppID) (bool, error) {
	return true, f.do("running", app)
}
func (f *fakeActions) Stop(_ context.Context, app domain.AppID) error  { return f.do("stop", app) }
func (f *fakeActions) Start(_ context.Context, app domain.AppID) error { return f.do("start", app) }
func (f *fakeActions) WaitForStable(_ context.Context, app domain.AppID, _ time.Duration) error {
	return f.do("stable", app)
}

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// sleepLog records requested sleeps without waiting.
type sleepLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.waits {
		sum += d
	}
	return sum
}

func newTest(actions *fakeActions, tweak func(*Settings)) (*Orchestrator, *sleepLog) {
	s := DefaultSettings()
	s.SyncWait = 30 * time.Second
	if tweak != nil {
		tweak(&s)
	}
	sl := &sleepLog{}
	o := New(actions, func() Settings { return s }, WithSleep(sl.sleep))
	return o, sl
}

// ─── Happy Path ─────────────────────────────────────────────────────────────

func TestRun_FullSequence(t *testing.T) {
	actions := &fakeActions{}
	o, sl := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	ok := o.Run(context.Background(), rec)

	require.True(t, ok)
	assert.Equal(t, []string{"stop:chat", "stop:sync", "start:sync", "stable:sync", "start:chat"}, actions.Calls())
	assert.Equal(t, domain.StepDone, o.Step())
	assert.Equal(t, 1, rec.Count(domain.LevelSuccess))

	// settle 2s + 3s + 3s, then blind wait 30s
	assert.Equal(t, 38*time.Second, sl.total())
}

func TestRun_ProgressLines(t *testing.T) {
	o, _ := newTest(&fakeActions{}, func(s *Settings) {
		s.SyncWait = 35 * time.Second
		s.ProgressInterval = 10 * time.Second
	})
	rec := &eventlog.Recorder{}
	require.True(t, o.Run(context.Background(), rec))

	var progress []string
	for _, m := range rec.Messages() {
		if strings.Contains(m, "remaining") {
			progress = append(progress, m)
		}
	}
	// 35s in 10s chunks: 25s, 15s, 5s remaining
	assert.Len(t, progress, 3)
}

func TestRun_ReadsSettingsEachRun(t *testing.T) {
	wait := 10 * time.Second
	sl := &sleepLog{}
	o := New(&fakeActions{}, func() Settings {
		s := DefaultSettings()
		s.SyncWait = wait
		s.ChatStopSettle, s.SyncStopSettle, s.SyncStartSettle = 0, 0, 0
		return s
	}, WithSleep(sl.sleep))

	require.True(t, o.Run(context.Background(), nil))
	wait = 20 * time.Second
	require.True(t, o.Run(context.Background(), nil))

	assert.Equal(t, 30*time.Second, sl.total())
}

// ─── Failure Paths ──────────────────────────────────────────────────────────

func TestRun_ChatStopFailureAborts(t *testing.T) {
	actions := &fakeActions{errs: map[string]error{"stop:chat": errors.New("access denied")}}
	o, _ := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	ok := o.Run(context.Background(), rec)

	assert.False(t, ok)
	assert.Equal(t, []string{"stop:chat"}, actions.Calls(), "step 2 must never be entered")
	assert.Equal(t, domain.StepFailed, o.Step())
	assert.GreaterOrEqual(t, rec.Count(domain.LevelError), 1)
}

func TestRun_SyncStopIsBestEffort(t *testing.T) {
	actions := &fakeActions{errs: map[string]error{"stop:sync": errors.New("not responding")}}
	o, _ := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	require.True(t, o.Run(context.Background(), rec))
	assert.Contains(t, actions.Calls(), "start:sync")
	assert.GreaterOrEqual(t, rec.Count(domain.LevelWarning), 1)
}

func TestRun_SyncStartFailureAborts(t *testing.T) {
	actions := &fakeActions{errs: map[string]error{"start:sync": domain.ErrAppNotFound}}
	o, _ := newTest(actions, nil)

	assert.False(t, o.Run(context.Background(), nil))
	assert.NotContains(t, actions.Calls(), "start:chat")
}

func TestRun_UnstableSyncIsWarning(t *testing.T) {
	actions := &fakeActions{errs: map[string]error{"stable:sync": domain.ErrNotStable}}
	o, _ := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	assert.True(t, o.Run(context.Background(), rec))
	assert.GreaterOrEqual(t, rec.Count(domain.LevelWarning), 1)
}

func TestRun_ChatRestartFailure(t *testing.T) {
	actions := &fakeActions{errs: map[string]error{"start:chat": domain.ErrStartFailed}}
	o, _ := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	ok := o.Run(context.Background(), rec)

	assert.False(t, ok)
	found := false
	for _, ev := range rec.Events() {
		if ev.Level == domain.LevelError && strings.Contains(ev.Message, "sync fixed but") {
			found = true
		}
	}
	assert.True(t, found, "chat restart failure needs its own message")
}

func TestRun_PanicRecovered(t *testing.T) {
	actions := &fakeActions{panicOn: "start:sync"}
	o, _ := newTest(actions, nil)
	rec := &eventlog.Recorder{}

	assert.NotPanics(t, func() {
		assert.False(t, o.Run(context.Background(), rec))
	})
	assert.Equal(t, domain.StepFailed, o.Step())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, _ := newTest(&fakeActions{}, nil)

	assert.False(t, o.Run(ctx, nil))
}

// ─── Dry Run ────────────────────────────────────────────────────────────────

func TestRun_DryRunTouchesNothing(t *testing.T) {
	actions := &fakeActions{}
	o, sl := newTest(actions, func(s *Settings) { s.DryRun = true })

	require.True(t, o.Run(context.Background(), nil))
	assert.Empty(t, actions.Calls())
	assert.Equal(t, dryRunWait, sl.total())
}
