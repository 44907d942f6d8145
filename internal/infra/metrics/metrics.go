// Package metrics provides Prometheus metrics for syncfix: orchestrator
// runs, trigger decisions, idle time, cooldown, health and the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Runs ───────────────────────────────────────────────────────────────────

// RunsTotal counts completed orchestrator runs by trigger source and outcome.
var RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "runs_total",
	Help:      "Completed orchestrator runs by source and outcome.",
}, []string{"source", "outcome"})

// RunDuration tracks end-to-end orchestrator run time in seconds.
var RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "syncfix",
	Name:      "run_duration_seconds",
	Help:      "Orchestrator run duration in seconds.",
	Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
})

// RunInProgress is 1 while an orchestrator run is active.
var RunInProgress = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "syncfix",
	Name:      "run_in_progress",
	Help:      "1 while an orchestrator run is active.",
})

// RunRetries counts whole-sequence retries issued by the retry layer.
var RunRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "run_retries_total",
	Help:      "Orchestrator sequence retries after a failed attempt.",
})

// ─── Triggers ───────────────────────────────────────────────────────────────

// TriggersSuppressed counts trigger events that did not start a run.
var TriggersSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "triggers_suppressed_total",
	Help:      "Trigger events suppressed, by source and reason (cooldown, busy).",
}, []string{"source", "reason"})

// IdleSeconds tracks the most recent idle sample.
var IdleSeconds = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "syncfix",
	Name:      "idle_seconds",
	Help:      "Seconds since the last keyboard or mouse input.",
})

// CooldownRemaining tracks the seconds left on the shared cooldown.
var CooldownRemaining = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "syncfix",
	Name:      "cooldown_remaining_seconds",
	Help:      "Seconds remaining on the shared trigger cooldown.",
})

// SchedulerErrors counts recovered scheduler iteration failures.
var SchedulerErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "scheduler_errors_total",
	Help:      "Scheduler iterations that failed and entered backoff.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "syncfix",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"component"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "health_recoveries_total",
	Help:      "Auto-recovery attempts per component.",
}, []string{"component"})

// ─── API ────────────────────────────────────────────────────────────────────

// APIRequests counts control API requests by route pattern and status code.
var APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "syncfix",
	Name:      "api_requests_total",
	Help:      "Control API requests by route and status.",
}, []string{"route", "code"})
