package supervise

import (
	"testing"
	"time"
)

func TestRespawnWindowAllowsUpToMax(t *testing.T) {
	w := newRespawnWindow(time.Minute, 3)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if exceeded := w.recordExit(now); exceeded {
			t.Fatalf("recordExit #%d = exceeded, want within budget", i+1)
		}
	}
	if exceeded := w.recordExit(now); !exceeded {
		t.Fatalf("recordExit past max = not exceeded, want exceeded")
	}
}

func TestRespawnWindowResetsAfterPeriod(t *testing.T) {
	w := newRespawnWindow(time.Second, 1)
	now := time.Now()

	if exceeded := w.recordExit(now); exceeded {
		t.Fatalf("first exit exceeded budget of 1")
	}
	if exceeded := w.recordExit(now); !exceeded {
		t.Fatalf("second exit within same instant should exceed budget of 1")
	}

	later := now.Add(2 * time.Second)
	if exceeded := w.recordExit(later); exceeded {
		t.Fatalf("recordExit after period elapsed = exceeded, want window reset")
	}
}

func TestRespawnWindowZeroPeriodNeverResets(t *testing.T) {
	w := newRespawnWindow(0, 2)
	now := time.Now()

	w.recordExit(now)
	w.recordExit(now.Add(time.Hour))
	if exceeded := w.recordExit(now.Add(2 * time.Hour)); !exceeded {
		t.Fatalf("third exit with period=0 (never resets) should exceed budget of 2")
	}
}
