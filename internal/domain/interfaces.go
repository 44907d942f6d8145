package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ProcessActions controls the two well-known applications.
// Implemented by infra/process.Controller.
type ProcessActions interface {
	// IsRunning reports whether any process of the app is alive.
	IsRunning(ctx context.Context, app AppID) (bool, error)

	// Stop terminates the app. Stopping an app that is not running succeeds.
	Stop(ctx context.Context, app AppID) error

	// Start launches the app. Starting an app that is already running succeeds.
	Start(ctx context.Context, app AppID) error

	// WaitForStable blocks until the app has been seen running steadily
	// or the timeout expires.
	WaitForStable(ctx context.Context, app AppID, timeout time.Duration) error
}

// IdleSampler reports system-wide input idle time.
// Implemented by infra/resource.IdleDetector. Never fails: 0 on error.
type IdleSampler interface {
	IdleSeconds() float64
}

// ConfigSource hands out the current trigger configuration snapshot.
// Implemented by daemon.ConfigStore.
type ConfigSource interface {
	TriggerConfig() TriggerConfig
}

// Runner executes one orchestrator run and reports overall success.
// Implemented by orchestrator.Orchestrator and orchestrator.Retrier.
type Runner interface {
	Run(ctx context.Context, sink EventSink) bool
}
