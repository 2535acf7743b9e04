package supervise

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestControlFIFOStopCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control")
	c, err := OpenControlFIFO(path)
	if err != nil {
		t.Fatalf("OpenControlFIFO: %v", err)
	}
	defer c.Close()

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("stop\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	done := make(chan Command, 1)
	go func() {
		cmd, err := c.Read()
		if err != nil {
			t.Errorf("Read: %v", err)
			return
		}
		done <- cmd
	}()

	select {
	case cmd := <-done:
		if !cmd.Stop {
			t.Errorf("Read() = %+v, want Stop=true", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control FIFO read")
	}
}

func TestParseCommandSignalForms(t *testing.T) {
	cases := []struct {
		line    string
		wantSig syscall.Signal
		wantHas bool
	}{
		{"signal 1", syscall.SIGHUP, true},
		{"signal HUP", syscall.SIGHUP, true},
		{"signal SIGTERM", syscall.SIGTERM, true},
		{"signal bogus", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got := parseCommand(tc.line)
		if got.HasSig != tc.wantHas || (tc.wantHas && got.Signal != tc.wantSig) {
			t.Errorf("parseCommand(%q) = %+v, want sig=%v has=%v", tc.line, got, tc.wantSig, tc.wantHas)
		}
	}
}

func TestFifoPath(t *testing.T) {
	got := fifoPath("/run/openrc", "sshd")
	want := "/run/openrc/daemons/sshd/control"
	if got != want {
		t.Errorf("fifoPath() = %q, want %q", got, want)
	}
}
