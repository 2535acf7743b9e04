package svcstate

import (
	"testing"

	"openrc-go/pkg/rcpath"
)

func newTestLayout(t *testing.T) *rcpath.Layout {
	t.Helper()
	return rcpath.NewLayout(t.TempDir(), t.TempDir(), false, "")
}

func TestMachineStartLifecycle(t *testing.T) {
	layout := newTestLayout(t)
	m := NewMachine(layout, "sshd")

	if err := m.BeginStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	st, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Starting {
		t.Fatalf("Primary = %v, want starting", st.Primary)
	}

	if err := m.FinishStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("FinishStart: %v", err)
	}
	st, err = m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Started {
		t.Fatalf("Primary = %v, want started", st.Primary)
	}
}

func TestMachineAbortStartFromInactiveRestoresInactive(t *testing.T) {
	layout := newTestLayout(t)
	m := NewMachine(layout, "net")

	if err := m.GoInactive("/etc/init.d/net"); err != nil {
		t.Fatalf("GoInactive: %v", err)
	}
	if err := m.BeginStart("/etc/init.d/net"); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := m.AbortStart("/etc/init.d/net"); err != nil {
		t.Fatalf("AbortStart: %v", err)
	}

	st, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Inactive {
		t.Errorf("Primary = %v, want inactive restored after a failed start from inactive", st.Primary)
	}
	if !st.Failed {
		t.Errorf("Failed = false, want true after AbortStart")
	}
	if st.WasInactive {
		t.Errorf("WasInactive = true, want cleared once restored")
	}
}

func TestMachineAbortStartFromStoppedRestoresStopped(t *testing.T) {
	layout := newTestLayout(t)
	m := NewMachine(layout, "sshd")

	if err := m.BeginStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := m.AbortStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("AbortStart: %v", err)
	}

	st, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Stopped {
		t.Errorf("Primary = %v, want stopped", st.Primary)
	}
}

func TestMachineStopClearsHotplugged(t *testing.T) {
	layout := newTestLayout(t)
	m := NewMachine(layout, "eth0")

	if err := m.MarkHotplugged("/etc/init.d/eth0"); err != nil {
		t.Fatalf("MarkHotplugged: %v", err)
	}
	if err := m.BeginStop("/etc/init.d/eth0"); err != nil {
		t.Fatalf("BeginStop: %v", err)
	}
	if err := m.FinishStop(); err != nil {
		t.Fatalf("FinishStop: %v", err)
	}

	st, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Stopped {
		t.Errorf("Primary = %v, want stopped", st.Primary)
	}
	if st.Hotplugged {
		t.Errorf("Hotplugged = true, want cleared on a deliberate stop")
	}
}

func TestMachineMarkFailedLeavesPrimaryUntouched(t *testing.T) {
	layout := newTestLayout(t)
	m := NewMachine(layout, "sshd")

	if err := m.BeginStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := m.FinishStart("/etc/init.d/sshd"); err != nil {
		t.Fatalf("FinishStart: %v", err)
	}

	if err := m.MarkFailed("/etc/init.d/sshd"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	st, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Primary != Started {
		t.Errorf("Primary = %v, want started (MarkFailed only sets the modifier bit)", st.Primary)
	}
	if !st.Failed {
		t.Error("Failed = false, want true after MarkFailed")
	}
}
