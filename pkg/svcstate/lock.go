// Package svcstate implements C3: the per-service state machine, the
// exclusive-lock exclusion protocol, scheduled starts, daemon records, and
// crash detection.
package svcstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"openrc-go/internal/rcerrors"
)

// ServiceLock holds the open file descriptor backing an advisory exclusive
// flock on exclusive/<svc>, per spec 4.3.
type ServiceLock struct {
	file *os.File
	svc  string
}

// AcquireLock takes the exclusive lock on exclusive/<svc> under stateDir
// with a single non-blocking flock attempt (golang.org/x/sys/unix.Flock,
// replacing the teacher's raw syscall.Flock), per spec 4.3 and
// original_source/src/shared/misc.c's svc_lock: LOCK_EX|LOCK_NB either
// succeeds immediately or fails immediately, with no retry. currentState is
// used only to populate a LockContention error when the lock is already
// held; ignoreFailure mirrors spec 4.3's caller-set "ignore lock failure"
// flag used for cascade restarts, where losing the race is a silent
// success.
func AcquireLock(stateDir, svc string, currentState func() string, ignoreFailure bool) (*ServiceLock, error) {
	dir := filepath.Join(stateDir, "exclusive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &rcerrors.SystemError{Syscall: "mkdir", Err: err}
	}
	path := filepath.Join(dir, svc)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "open", Err: err}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if !errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &rcerrors.SystemError{Syscall: "flock", Err: err}
		}
		state := ""
		if currentState != nil {
			state = currentState()
		}
		return nil, &rcerrors.LockContention{Service: svc, CurrentState: state, Ignored: ignoreFailure}
	}
	return &ServiceLock{file: f, svc: svc}, nil
}

// Release drops the flock and closes the file. Callers must only release
// on reaching a terminal state, per spec 4.3.
func (l *ServiceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("svcstate: release lock on %s: %w", l.svc, err)
	}
	return l.file.Close()
}
