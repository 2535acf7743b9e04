package supervise

import (
	"syscall"
	"time"
)

// VerbRunner invokes an external verb (e.g. "healthcheck", "unhealthy") for
// the supervised service and reports its exit status, backed in
// production by pkg/runscript.Run against the service's script body.
type VerbRunner func(verb string) (exitCode int, err error)

// HealthChecker wraps the timer-driven healthcheck/unhealthy verb pair
// from spec 4.5's Health checks step.
type HealthChecker struct {
	runVerb VerbRunner
}

func newHealthChecker(runVerb VerbRunner) *HealthChecker {
	return &HealthChecker{runVerb: runVerb}
}

// check runs "healthcheck"; on nonzero exit it runs "unhealthy" and
// reports healthy=false so the caller kills and respawns the child.
func (h *HealthChecker) check() (healthy bool) {
	if h.runVerb == nil {
		return true
	}
	code, err := h.runVerb("healthcheck")
	if err == nil && code == 0 {
		return true
	}
	_, _ = h.runVerb("unhealthy")
	return false
}

// killAndWait sends SIGTERM to the process group, waits up to grace for
// it to exit, and escalates to SIGKILL, per spec 4.5's health-check
// escalation and C5's shutdown step (both reuse this 5s-grace pattern).
func killAndWait(pid int, grace time.Duration, exited <-chan struct{}) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	select {
	case <-exited:
		return
	case <-time.After(grace):
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
