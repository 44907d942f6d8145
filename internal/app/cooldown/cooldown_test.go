package cooldown

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncfix/syncfix/internal/domain"
)

// memPersister is an in-memory Persister that counts saves.
type memPersister struct {
	mu      sync.Mutex
	t       *time.Time
	saves   int
	loadErr error
	saveErr error
}

func (m *memPersister) LoadLastTrigger() (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return time.Time{}, false, m.loadErr
	}
	if m.t == nil {
		return time.Time{}, false, nil
	}
	return *m.t, true, nil
}

func (m *memPersister) SaveLastTrigger(t *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.t = t
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)}
}

// ─── Basic Behavior ─────────────────────────────────────────────────────────

func TestStore_NeverTriggered(t *testing.T) {
	s := New(&memPersister{}, nil)

	assert.False(t, s.IsInCooldown(20*time.Minute))
	assert.Zero(t, s.Remaining(20*time.Minute))
	_, ok := s.LastTrigger()
	assert.False(t, ok)
}

func TestStore_RecordAndRemaining(t *testing.T) {
	clk := newClock()
	p := &memPersister{}
	s := New(p, nil, WithClock(clk.Now))

	s.RecordTrigger("test")
	require.True(t, s.IsInCooldown(20*time.Minute))
	assert.Equal(t, 20*time.Minute, s.Remaining(20*time.Minute))
	assert.Equal(t, 1, p.saves, "record must persist immediately")

	clk.Advance(15 * time.Minute)
	assert.Equal(t, 5*time.Minute, s.Remaining(20*time.Minute))

	clk.Advance(5 * time.Minute)
	assert.False(t, s.IsInCooldown(20*time.Minute), "cooldown ends exactly at d")
	assert.Zero(t, s.Remaining(20*time.Minute))
}

func TestStore_NonPositiveDuration(t *testing.T) {
	s := New(&memPersister{}, nil)
	s.RecordTrigger("test")

	assert.False(t, s.IsInCooldown(0))
	assert.False(t, s.IsInCooldown(-time.Minute))
	assert.True(t, s.CheckAndRecordIfAllowed(0, "test"))
}

func TestStore_ResetIdempotent(t *testing.T) {
	p := &memPersister{}
	s := New(p, nil)

	s.RecordTrigger("test")
	s.Reset()
	s.Reset()

	assert.False(t, s.IsInCooldown(time.Hour))
	assert.Nil(t, p.t)
}

// ─── Atomic Check-and-Record ────────────────────────────────────────────────

func TestStore_CheckAndRecordIfAllowed(t *testing.T) {
	clk := newClock()
	s := New(&memPersister{}, nil, WithClock(clk.Now))

	assert.True(t, s.CheckAndRecordIfAllowed(20*time.Minute, "idle"))
	first, _ := s.LastTrigger()

	clk.Advance(time.Minute)
	assert.False(t, s.CheckAndRecordIfAllowed(20*time.Minute, "scheduled"))

	last, _ := s.LastTrigger()
	assert.Equal(t, first, last, "rejected check must not move the timestamp")
}

func TestStore_CheckAndRecordConcurrent(t *testing.T) {
	s := New(&memPersister{}, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CheckAndRecordIfAllowed(time.Hour, "race") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed, "exactly one caller may pass")
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestStore_LoadsPersistedValue(t *testing.T) {
	clk := newClock()
	past := clk.Now().Add(-5 * time.Minute)
	s := New(&memPersister{t: &past}, nil, WithClock(clk.Now))

	assert.True(t, s.IsInCooldown(20*time.Minute))
	assert.Equal(t, 15*time.Minute, s.Remaining(20*time.Minute))
}

func TestStore_FailOpenOnCorruptState(t *testing.T) {
	var events []domain.LogEvent
	sink := domain.SinkFunc(func(ev domain.LogEvent) { events = append(events, ev) })

	s := New(&memPersister{loadErr: errors.New("bad json")}, sink)

	assert.False(t, s.IsInCooldown(time.Hour))
	require.NotEmpty(t, events)
	assert.Equal(t, domain.LevelWarning, events[0].Level)
}

func TestStore_SaveFailureKeepsMemory(t *testing.T) {
	s := New(&memPersister{saveErr: errors.New("disk full")}, nil)

	s.RecordTrigger("test")
	assert.True(t, s.IsInCooldown(time.Hour))
}

func TestStore_NilPersister(t *testing.T) {
	s := New(nil, nil)
	s.RecordTrigger("test")
	assert.True(t, s.IsInCooldown(time.Hour))
	s.Reset()
	assert.False(t, s.IsInCooldown(time.Hour))
}
