package svcstate

import (
	"path/filepath"
	"testing"
)

// TestScheduleDelivery covers spec 8 property 6: a service scheduled
// against a parent shows up as pending once the parent is ready, and
// disappears once cleared.
func TestScheduleDelivery(t *testing.T) {
	dir := t.TempDir()
	sched := NewScheduler(dir)

	target := filepath.Join(dir, "init.d", "dhcpcd")
	if err := sched.Schedule("net", "dhcpcd", target); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	pending, err := sched.Pending("net")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0] != "dhcpcd" {
		t.Fatalf("Pending() = %v, want [dhcpcd]", pending)
	}

	waiting, err := sched.ScheduledBy("dhcpcd")
	if err != nil {
		t.Fatalf("ScheduledBy: %v", err)
	}
	if len(waiting) != 1 || waiting[0] != "net" {
		t.Fatalf("ScheduledBy() = %v, want [net]", waiting)
	}

	if err := sched.Clear("net"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	pending, err = sched.Pending("net")
	if err != nil {
		t.Fatalf("Pending after Clear: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("Pending() after Clear = %v, want empty", pending)
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	sched := NewScheduler(dir)
	target := filepath.Join(dir, "init.d", "dhcpcd")

	if err := sched.Schedule("net", "dhcpcd", target); err != nil {
		t.Fatalf("Schedule (first): %v", err)
	}
	if err := sched.Schedule("net", "dhcpcd", target); err != nil {
		t.Fatalf("Schedule (second): %v", err)
	}
	pending, _ := sched.Pending("net")
	if len(pending) != 1 {
		t.Fatalf("Pending() = %v, want exactly one entry after re-scheduling", pending)
	}
}

func TestClearMissingParentIsNotError(t *testing.T) {
	dir := t.TempDir()
	sched := NewScheduler(dir)
	if err := sched.Clear("never-scheduled"); err != nil {
		t.Fatalf("Clear on an unscheduled parent: %v", err)
	}
}
