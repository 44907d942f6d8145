package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/syncfix/syncfix/internal/domain"
)

// scriptedRunner returns results in order, then false forever.
type scriptedRunner struct {
	results []bool
	calls   int
}

func (r *scriptedRunner) Run(context.Context, domain.EventSink) bool {
	r.calls++
	if r.calls <= len(r.results) {
		return r.results[r.calls-1]
	}
	return false
}

func newRetrier(inner domain.Runner, p RetryPolicy) (*Retrier, *sleepLog) {
	sl := &sleepLog{}
	r := NewRetrier(inner, func() RetryPolicy { return p })
	r.sleep = sl.sleep
	return r, sl
}

func TestRetrier_DisabledRunsOnce(t *testing.T) {
	inner := &scriptedRunner{results: []bool{false}}
	r, _ := newRetrier(inner, DefaultRetryPolicy())

	assert.False(t, r.Run(context.Background(), nil))
	assert.Equal(t, 1, inner.calls, "max_retry_attempts is advisory when disabled")
}

func TestRetrier_SucceedsOnRetry(t *testing.T) {
	inner := &scriptedRunner{results: []bool{false, false, true}}
	p := DefaultRetryPolicy()
	p.Enabled = true
	r, sl := newRetrier(inner, p)

	assert.True(t, r.Run(context.Background(), nil))
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, sl.waits)
}

func TestRetrier_GivesUp(t *testing.T) {
	inner := &scriptedRunner{}
	p := DefaultRetryPolicy()
	p.Enabled = true
	p.MaxAttempts = 2
	r, _ := newRetrier(inner, p)

	assert.False(t, r.Run(context.Background(), nil))
	assert.Equal(t, 3, inner.calls)
}

func TestRetrier_StepDelegates(t *testing.T) {
	o, _ := newTest(&fakeActions{}, nil)
	r := NewRetrier(o, nil)
	o.enter(domain.StepWaitingForSync)
	assert.Equal(t, domain.StepWaitingForSync, r.Step())

	assert.Equal(t, domain.StepStart, NewRetrier(&scriptedRunner{}, nil).Step())
}

func TestBackoff(t *testing.T) {
	p := DefaultRetryPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 5 * time.Minute},
		{9, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff(p, tt.attempt), "attempt %d", tt.attempt)
	}
}
