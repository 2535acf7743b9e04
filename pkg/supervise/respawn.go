package supervise

import (
	"time"
)

// respawnWindow tracks the respawn budget for spec 4.5/8's "Supervisor
// respawn window" property: a child that exits more than RespawnMax times
// inside RespawnPeriod stops being respawned, and the window resets once
// RespawnPeriod has elapsed since the first respawn in it. Grounded on
// supervise.c's first_respawn/respawn_count/respawn_period bookkeeping.
type respawnWindow struct {
	period       time.Duration
	max          int
	firstRespawn time.Time
	count        int
}

func newRespawnWindow(period time.Duration, max int) *respawnWindow {
	return &respawnWindow{period: period, max: max}
}

// recordExit registers one child exit and reports whether the respawn
// budget is exhausted (the caller should stop supervising and mark the
// service crashed).
func (w *respawnWindow) recordExit(now time.Time) (exceeded bool) {
	if w.firstRespawn.IsZero() {
		w.firstRespawn = now
		w.count = 1
		return w.count > w.max
	}
	if w.period > 0 && now.Sub(w.firstRespawn) > w.period {
		w.firstRespawn = now
		w.count = 1
		return w.count > w.max
	}
	w.count++
	return w.count > w.max
}
