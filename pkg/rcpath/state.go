package rcpath

import (
	"os"
	"path/filepath"
)

// States lists the symlink-backed primary/modifier states C1 persists as
// membership directories under the state directory (spec section 6).
var States = []string{
	"started", "starting", "stopping", "inactive",
	"wasinactive", "failed", "hotplugged",
}

// StateGet scans every state directory for a symlink named svc and returns
// the set of states svc currently belongs to. Multiple entries are possible
// because wasinactive, failed and hotplugged are modifier bits that may
// coexist with one of the primary states.
func (l *Layout) StateGet(svc string) (map[string]bool, error) {
	set := make(map[string]bool)
	for _, state := range States {
		if _, err := os.Lstat(filepath.Join(l.StateDir, state, svc)); err == nil {
			set[state] = true
		}
	}
	return set, nil
}

// StateMark creates the membership symlink for svc under state, pointing at
// resolvedPath. Callers are expected to hold the exclusive lock on svc (see
// pkg/svcstate) before calling this; C1 itself does not lock.
func (l *Layout) StateMark(svc, state, resolvedPath string) error {
	dir := filepath.Join(l.StateDir, state)
	if err := EnsureDir(dir, 0o755); err != nil {
		return err
	}
	link := filepath.Join(dir, svc)
	_ = os.Remove(link)
	return os.Symlink(resolvedPath, link)
}

// StateUnmark removes the membership symlink for svc under state, if present.
func (l *Layout) StateUnmark(svc, state string) error {
	err := os.Remove(filepath.Join(l.StateDir, state, svc))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// StateUnmarkAll removes svc's membership from every primary/modifier state
// directory, used when moving to a fresh state that replaces all of them.
func (l *Layout) StateUnmarkAll(svc string) error {
	for _, state := range States {
		if err := l.StateUnmark(svc, state); err != nil {
			return err
		}
	}
	return nil
}
