package supervise

import (
	"testing"
	"time"
)

func TestNotifierFDForm(t *testing.T) {
	n, err := NewNotifier(NotifySpec{Kind: NotifyFD, FD: 3}, t.TempDir(), "sshd")
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	defer n.Close()

	if n.ChildExtraFile() == nil {
		t.Fatal("ChildExtraFile() = nil, want the pipe write end")
	}
	if n.ReadyFD() == nil {
		t.Fatal("ReadyFD() = nil, want the pipe read end")
	}
	if env := n.Env(); env != nil {
		t.Errorf("Env() = %v, want nil for fd form", env)
	}

	go func() {
		_, _ = n.ChildExtraFile().Write([]byte("x"))
	}()

	buf := make([]byte, 1)
	done := make(chan struct{})
	go func() {
		n.ReadyFD().Read(buf)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out reading notify pipe")
	}
}

func TestNotifierSocketForm(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNotifier(NotifySpec{Kind: NotifySocket}, dir, "sshd")
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	defer n.Close()

	if n.SocketConn() == nil {
		t.Fatal("SocketConn() = nil, want a bound unixgram listener")
	}
	env := n.Env()
	if len(env) != 1 {
		t.Fatalf("Env() = %v, want one NOTIFY_SOCKET entry", env)
	}
}

func TestNotifierNoneForm(t *testing.T) {
	n, err := NewNotifier(NotifySpec{Kind: NotifyNone}, t.TempDir(), "sshd")
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	defer n.Close()

	if n.ChildExtraFile() != nil || n.ReadyFD() != nil || n.SocketConn() != nil {
		t.Errorf("expected all notify accessors nil for NotifyNone")
	}
}
