package supervise

import (
	"errors"
	"os"
	"testing"
	"time"

	"openrc-go/internal/rcerrors"
	"openrc-go/pkg/rcpath"
)

// TestSupervisorRespawnBudgetExhausted exercises spec 4.5/8's "Supervisor
// respawn window" property end to end: a child that exits immediately and
// repeatedly should be respawned up to RespawnMax times within
// RespawnPeriod, then Run should return a *rcerrors.SupervisorError.
func TestSupervisorRespawnBudgetExhausted(t *testing.T) {
	dir := t.TempDir()
	layout := &rcpath.Layout{StateDir: dir}

	desc := &Descriptor{
		Service:       "flapper",
		Exec:          "/bin/sh",
		Argv:          []string{"/bin/sh", "-c", "exit 1"},
		RespawnMax:    2,
		RespawnPeriod: time.Minute,
	}

	s := NewSupervisor(layout, desc, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	select {
	case err := <-done:
		var supErr *rcerrors.SupervisorError
		if !errors.As(err, &supErr) {
			t.Fatalf("Run() error = %v, want *rcerrors.SupervisorError", err)
		}
		if supErr.Service != "flapper" {
			t.Errorf("SupervisorError.Service = %q, want flapper", supErr.Service)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for respawn budget to exhaust")
	}
}

func TestSupervisorStopViaControlFIFO(t *testing.T) {
	dir := t.TempDir()
	layout := &rcpath.Layout{StateDir: dir}

	desc := &Descriptor{
		Service: "sleeper",
		Exec:    "/bin/sh",
		Argv:    []string{"/bin/sh", "-c", "sleep 30"},
	}

	s := NewSupervisor(layout, desc, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	// Give the supervisor time to open the control FIFO and spawn the child.
	time.Sleep(200 * time.Millisecond)

	path := fifoPath(dir, "sleeper")
	writer, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open control fifo for writing: %v", err)
	}
	if _, err := writer.Write([]byte("stop\n")); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	writer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after stop = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for supervisor to shut down after stop")
	}
}
