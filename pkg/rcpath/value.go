package rcpath

import (
	"os"
	"path/filepath"
)

// ValueGet reads the persistent value stored at options/<svc>/<key>. It
// returns ("", false, nil) if the key has never been set.
func (l *Layout) ValueGet(svc, key string) (string, bool, error) {
	path := filepath.Join(l.StateDir, "options", svc, key)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// ValueSet writes value to options/<svc>/<key>, creating the parent
// directory if absent. Per spec 4.1, setting an empty value removes the
// key rather than writing an empty file.
func (l *Layout) ValueSet(svc, key, value string) error {
	dir := filepath.Join(l.StateDir, "options", svc)
	path := filepath.Join(dir, key)
	if value == "" {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := EnsureDir(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(value), 0o644)
}

// ValueClear removes every key for svc, used when a service reaches the
// terminal "stopped" state per spec 3's lifecycle rule.
func (l *Layout) ValueClear(svc string) error {
	err := os.RemoveAll(filepath.Join(l.StateDir, "options", svc))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
