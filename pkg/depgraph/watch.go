package depgraph

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange when any init-script root or depconfig path
// changes, complementing the mtime-comparison check in IsStale for a
// process that stays resident; it does not itself reload or invalidate a
// graph. Its caller is rc-status --watch-deps, which logs the change.
// Adapted from cmd/watcher.go's StartConfigWatcher, which
// watches a fixed pair of config directories the same way.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func()
	lastSeen map[string]time.Time
}

// NewWatcher creates a Watcher over roots (directories or individual
// files); onChange is invoked, debounced to once per second per path, for
// any write/create/remove event under them.
func NewWatcher(roots []string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fs: fw, onChange: onChange, lastSeen: make(map[string]time.Time)}
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return w.fs.Add(root)
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Run blocks, dispatching onChange until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}) {
	defer w.fs.Close()
	for {
		select {
		case <-stop:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			if last, seen := w.lastSeen[event.Name]; seen && time.Since(last) < time.Second {
				continue
			}
			w.lastSeen[event.Name] = time.Now()
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = w.fs.Add(event.Name)
			}
			w.onChange()
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
