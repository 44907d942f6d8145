package orchestrator

import (
	"context"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/metrics"
	"github.com/syncfix/syncfix/internal/infra/resource"
)

// RetryPolicy is read at the start of every Retrier run.
type RetryPolicy struct {
	Enabled     bool
	MaxAttempts int           // additional attempts after the first
	BaseDelay   time.Duration // initial backoff delay (doubles each retry)
	MaxDelay    time.Duration // cap on backoff delay
}

// DefaultRetryPolicy is disabled: max_retry_attempts stays advisory
// unless retries are switched on.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   30 * time.Second,
		MaxDelay:    5 * time.Minute,
	}
}

// stepper is implemented by runners that expose their current step.
type stepper interface {
	Step() domain.Step
}

// Retrier re-runs the whole sequence after a failure. The retried sequence
// is a single run from the caller's point of view. Re-running is safe
// because stopping a stopped app and starting a running app both succeed.
type Retrier struct {
	inner  domain.Runner
	policy func() RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier wraps inner. policy may be nil for DefaultRetryPolicy.
func NewRetrier(inner domain.Runner, policy func() RetryPolicy) *Retrier {
	if policy == nil {
		policy = DefaultRetryPolicy
	}
	return &Retrier{inner: inner, policy: policy, sleep: sleepCtx}
}

// Step delegates to the wrapped runner when it reports steps.
func (r *Retrier) Step() domain.Step {
	if s, ok := r.inner.(stepper); ok {
		return s.Step()
	}
	return domain.StepStart
}

// Run executes inner, retrying with exponential backoff while enabled.
func (r *Retrier) Run(ctx context.Context, sink domain.EventSink) bool {
	log := domain.Emitter{Sink: sink, Source: "retry"}
	p := r.policy()

	ok := r.inner.Run(ctx, sink)
	if ok || !p.Enabled {
		return ok
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		delay := backoff(p, attempt)
		log.Warnf("sync run failed, retry %d/%d in %s", attempt, p.MaxAttempts, resource.Format(delay))
		if err := r.sleep(ctx, delay); err != nil {
			log.Errorf("retry cancelled: %v", err)
			return false
		}

		metrics.RunRetries.Inc()
		if r.inner.Run(ctx, sink) {
			return true
		}
	}
	log.Errorf("sync run failed after %d retries", p.MaxAttempts)
	return false
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func backoff(p RetryPolicy, attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
