package svcstate

import (
	"errors"
	"testing"

	"openrc-go/internal/rcerrors"
)

// TestAcquireLockExcludesConcurrentHolder covers spec 8 property 5: only
// one driver may hold the exclusive lock on a service at a time, and a
// concurrent attempt reports LockContention immediately rather than
// blocking.
func TestAcquireLockExcludesConcurrentHolder(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, "sshd", nil, false)
	if err != nil {
		t.Fatalf("AcquireLock (first): %v", err)
	}
	defer first.Release()

	_, err = AcquireLock(dir, "sshd", func() string { return "starting" }, false)
	if err == nil {
		t.Fatalf("AcquireLock (second) succeeded while first holder is live")
	}
	var lc *rcerrors.LockContention
	if !errors.As(err, &lc) {
		t.Fatalf("AcquireLock (second) err = %v, want *rcerrors.LockContention", err)
	}
	if lc.CurrentState != "starting" {
		t.Errorf("LockContention.CurrentState = %q, want %q", lc.CurrentState, "starting")
	}
}

func TestAcquireLockSucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, "sshd", nil, false)
	if err != nil {
		t.Fatalf("AcquireLock (first): %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := AcquireLock(dir, "sshd", nil, false)
	if err != nil {
		t.Fatalf("AcquireLock (second) after release: %v", err)
	}
	second.Release()
}
