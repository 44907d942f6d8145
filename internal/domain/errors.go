package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Application errors
	ErrUnknownApp  = errors.New("unknown application")
	ErrAppNotFound = errors.New("application executable not found")
	ErrStopFailed  = errors.New("application did not stop")
	ErrStartFailed = errors.New("application did not start")
	ErrNotStable   = errors.New("application did not stay running")

	// Coordination errors
	ErrRunInProgress = errors.New("a sync run is already in progress")

	// Daemon errors
	ErrDaemonRunning     = errors.New("syncfix daemon is already running")
	ErrDaemonUnreachable = errors.New("syncfix daemon is not reachable (start it with `syncfix serve`)")
)
