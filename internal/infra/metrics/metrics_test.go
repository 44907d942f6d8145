package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestRunMetrics(t *testing.T) {
	RunsTotal.WithLabelValues("idle", "success").Inc()
	RunDuration.Observe(312)
	RunInProgress.Set(1)
	RunRetries.Inc()

	names := gatheredNames(t)
	expected := []string{
		"syncfix_runs_total",
		"syncfix_run_duration_seconds",
		"syncfix_run_in_progress",
		"syncfix_run_retries_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestTriggerMetrics(t *testing.T) {
	TriggersSuppressed.WithLabelValues("scheduled", "cooldown").Inc()
	IdleSeconds.Set(640)
	CooldownRemaining.Set(1100)
	SchedulerErrors.Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"syncfix_triggers_suppressed_total",
		"syncfix_idle_seconds",
		"syncfix_cooldown_remaining_seconds",
		"syncfix_scheduler_errors_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthAndAPIMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("state_db").Set(1)
	HealthRecoveries.WithLabelValues("state_db").Inc()
	APIRequests.WithLabelValues("/api/status", "200").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"syncfix_health_check_status",
		"syncfix_health_recoveries_total",
		"syncfix_api_requests_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
