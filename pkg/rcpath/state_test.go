package rcpath

import "testing"

func TestStateMarkUnmark(t *testing.T) {
	l, _ := newTestLayout(t)

	if err := l.StateMark("sshd", "starting", "/etc/init.d/sshd"); err != nil {
		t.Fatalf("StateMark: %v", err)
	}
	got, err := l.StateGet("sshd")
	if err != nil {
		t.Fatalf("StateGet: %v", err)
	}
	if !got["starting"] {
		t.Fatalf("StateGet() = %v, want starting set", got)
	}

	if err := l.StateMark("sshd", "started", "/etc/init.d/sshd"); err != nil {
		t.Fatalf("StateMark: %v", err)
	}
	if err := l.StateUnmark("sshd", "starting"); err != nil {
		t.Fatalf("StateUnmark: %v", err)
	}
	got, _ = l.StateGet("sshd")
	if got["starting"] {
		t.Errorf("starting should have been unmarked")
	}
	if !got["started"] {
		t.Errorf("started should still be set")
	}
}

func TestStateModifierBitsCoexistWithPrimary(t *testing.T) {
	l, _ := newTestLayout(t)
	if err := l.StateMark("sshd", "started", "/etc/init.d/sshd"); err != nil {
		t.Fatalf("StateMark(started): %v", err)
	}
	if err := l.StateMark("sshd", "failed", "/etc/init.d/sshd"); err != nil {
		t.Fatalf("StateMark(failed): %v", err)
	}
	got, _ := l.StateGet("sshd")
	if !got["started"] || !got["failed"] {
		t.Errorf("StateGet() = %v, want both started and failed set", got)
	}
}

func TestStateUnmarkAll(t *testing.T) {
	l, _ := newTestLayout(t)
	for _, s := range []string{"started", "failed", "hotplugged"} {
		if err := l.StateMark("sshd", s, "/etc/init.d/sshd"); err != nil {
			t.Fatalf("StateMark(%s): %v", s, err)
		}
	}
	if err := l.StateUnmarkAll("sshd"); err != nil {
		t.Fatalf("StateUnmarkAll: %v", err)
	}
	got, _ := l.StateGet("sshd")
	if len(got) != 0 {
		t.Errorf("StateGet() after StateUnmarkAll = %v, want empty", got)
	}
}
