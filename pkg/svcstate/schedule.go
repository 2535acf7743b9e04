package svcstate

import (
	"os"
	"path/filepath"

	"openrc-go/internal/rcerrors"
)

// Scheduler manages scheduled/<parent>/<target> symlinks, grounded on
// librc.c's rc_service_schedule_start/rc_service_schedule_clear: a parent
// service (often an abstract provider like "net") accumulates a set of
// targets that should be started once the parent itself starts.
type Scheduler struct {
	stateDir string
}

// NewScheduler builds a Scheduler rooted at stateDir.
func NewScheduler(stateDir string) *Scheduler {
	return &Scheduler{stateDir: stateDir}
}

func (s *Scheduler) parentDir(parent string) string {
	return filepath.Join(s.stateDir, "scheduled", parent)
}

// Schedule records that target should be started once parent starts,
// symlinking to resolvedTarget. It is idempotent: scheduling the same
// target twice is not an error.
func (s *Scheduler) Schedule(parent, target, resolvedTarget string) error {
	dir := s.parentDir(parent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &rcerrors.SystemError{Syscall: "mkdir", Err: err}
	}
	link := filepath.Join(dir, target)
	if _, err := os.Lstat(link); err == nil {
		return nil
	}
	return os.Symlink(resolvedTarget, link)
}

// Clear removes every pending schedule entry for parent. Absence of the
// directory is not an error, per rc_service_schedule_clear treating ENOENT
// as success.
func (s *Scheduler) Clear(parent string) error {
	err := os.RemoveAll(s.parentDir(parent))
	if err != nil && !os.IsNotExist(err) {
		return &rcerrors.SystemError{Syscall: "rmdir", Err: err}
	}
	return nil
}

// Pending lists the service names scheduled to start once parent starts.
func (s *Scheduler) Pending(parent string) ([]string, error) {
	entries, err := os.ReadDir(s.parentDir(parent))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "readdir", Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// ScheduledBy reports every parent that has target pending, mirroring
// librc.c's rc_services_scheduled_by (used to know who is waiting on a
// service before deciding it is safe to stop).
func (s *Scheduler) ScheduledBy(target string) ([]string, error) {
	root := filepath.Join(s.stateDir, "scheduled")
	parents, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "readdir", Err: err}
	}
	var waiting []string
	for _, p := range parents {
		if _, err := os.Lstat(filepath.Join(root, p.Name(), target)); err == nil {
			waiting = append(waiting, p.Name())
		}
	}
	return waiting, nil
}
