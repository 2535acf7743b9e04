package rcpath

import (
	"path/filepath"
	"testing"
)

func TestValueGetSetClear(t *testing.T) {
	l, root := newTestLayout(t)
	_ = filepath.Join(root)

	if _, ok, err := l.ValueGet("sshd", "pid"); err != nil || ok {
		t.Fatalf("ValueGet on unset key: ok=%v err=%v", ok, err)
	}

	if err := l.ValueSet("sshd", "pid", "1234"); err != nil {
		t.Fatalf("ValueSet: %v", err)
	}
	v, ok, err := l.ValueGet("sshd", "pid")
	if err != nil || !ok || v != "1234" {
		t.Fatalf("ValueGet() = %q, %v, %v, want 1234, true, nil", v, ok, err)
	}

	if err := l.ValueSet("sshd", "pid", ""); err != nil {
		t.Fatalf("ValueSet(empty): %v", err)
	}
	if _, ok, _ := l.ValueGet("sshd", "pid"); ok {
		t.Errorf("ValueGet() after empty-set should report unset")
	}
}

func TestValueClearRemovesAllKeys(t *testing.T) {
	l, _ := newTestLayout(t)
	if err := l.ValueSet("sshd", "pid", "1"); err != nil {
		t.Fatalf("ValueSet: %v", err)
	}
	if err := l.ValueSet("sshd", "start_time", "100"); err != nil {
		t.Fatalf("ValueSet: %v", err)
	}
	if err := l.ValueClear("sshd"); err != nil {
		t.Fatalf("ValueClear: %v", err)
	}
	if _, ok, _ := l.ValueGet("sshd", "pid"); ok {
		t.Errorf("pid should be cleared")
	}
	if _, ok, _ := l.ValueGet("sshd", "start_time"); ok {
		t.Errorf("start_time should be cleared")
	}
}
