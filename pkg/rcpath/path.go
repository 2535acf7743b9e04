// Package rcpath implements C1: the canonical on-disk layout of runlevels,
// service state directories, scheduled-start links, and per-service value
// files, plus name resolution for a service given a search order over
// candidate init-script roots.
package rcpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout names the directories that make up one deployment's service tree:
// the base state directory (symlinks, locks, the deptree cache) and the
// ordered list of init-script roots searched by Resolve.
type Layout struct {
	// StateDir is the base service directory (spec section 6's on-disk layout).
	StateDir string
	// UserMode is true when running as an unprivileged per-user manager;
	// it adds the user init directory ahead of the system one in the
	// Resolve search order.
	UserMode bool
	// UserInitDir holds per-user service scripts, consulted first when
	// UserMode is set (e.g. $XDG_CONFIG_HOME/openrc-go/init.d).
	UserInitDir string
	// SystemInitDir holds the host's service scripts (e.g. /etc/init.d).
	SystemInitDir string
	// AdminOverrideDir holds local admin overrides layered on top of the
	// package-installed scripts (e.g. /etc/init.d/local or /usr/local/etc/init.d).
	AdminOverrideDir string
	// PackageInitDir holds package-installed service scripts
	// (e.g. /usr/share/openrc-go/init.d), searched last.
	PackageInitDir string
}

// NewLayout builds a Layout rooted at stateDir with the conventional
// subdirectory names under systemRoot (normally "/").
func NewLayout(stateDir, systemRoot string, userMode bool, userInitDir string) *Layout {
	return &Layout{
		StateDir:         stateDir,
		UserMode:         userMode,
		UserInitDir:      userInitDir,
		SystemInitDir:    filepath.Join(systemRoot, "etc", "init.d"),
		AdminOverrideDir: filepath.Join(systemRoot, "etc", "init.d", "local"),
		PackageInitDir:   filepath.Join(systemRoot, "usr", "share", "openrc-go", "init.d"),
	}
}

func (l *Layout) searchRoots() []string {
	var roots []string
	if l.UserMode && l.UserInitDir != "" {
		roots = append(roots, l.UserInitDir)
	}
	roots = append(roots, l.SystemInitDir, l.AdminOverrideDir, l.PackageInitDir)
	return roots
}

// Resolve implements spec 4.1's search order: (1) an already-recorded
// running/inactive symlink, (2) user init dir in user mode, (3) system init
// dir, (4) admin override dir, (5) package init dir. A name containing a
// path separator is resolved literally (after tilde/rel handling by the
// caller). Names ending in ".sh" are rejected, since that suffix is
// reserved for shell libraries, not verb bodies.
func (l *Layout) Resolve(name string) (string, error) {
	if strings.HasSuffix(name, ".sh") {
		return "", fmt.Errorf("rcpath: %q is a library, not a service", name)
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("rcpath: resolve %q: %w", name, err)
		}
		return filepath.Clean(name), nil
	}

	if link, err := l.followStateLink(name); err == nil {
		return link, nil
	}

	for _, root := range l.searchRoots() {
		candidate := filepath.Join(root, name)
		if info, err := os.Lstat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("rcpath: service %q not found", name)
}

// followStateLink returns the target of a running/inactive/started state
// symlink for name if one exists, so services already known to the state
// store resolve without a directory scan.
func (l *Layout) followStateLink(name string) (string, error) {
	for _, state := range []string{"started", "starting", "stopping", "inactive"} {
		link := filepath.Join(l.StateDir, state, name)
		if target, err := os.Readlink(link); err == nil {
			return target, nil
		}
	}
	return "", fmt.Errorf("rcpath: no recorded state link for %q", name)
}

// InRunlevel is a pure filesystem existence test: does a symlink for
// service exist under runlevelDir/runlevel/service?
func (l *Layout) InRunlevel(runlevelsRoot, runlevel, service string) bool {
	_, err := os.Lstat(filepath.Join(runlevelsRoot, runlevel, service))
	return err == nil
}

// AddToRunlevel creates the membership symlink for service in runlevel,
// pointing at resolvedPath. Adding to "boot" is refused unless resolvedPath
// lives under the system init directory, per spec 4.1.
func (l *Layout) AddToRunlevel(runlevelsRoot, runlevel, service, resolvedPath string) error {
	if runlevel == "boot" && !strings.HasPrefix(resolvedPath, l.SystemInitDir+string(os.PathSeparator)) {
		return fmt.Errorf("rcpath: %q is not in the system init directory, cannot join boot runlevel", service)
	}
	dir := filepath.Join(runlevelsRoot, runlevel)
	if err := EnsureDir(dir, 0o755); err != nil {
		return err
	}
	link := filepath.Join(dir, service)
	_ = os.Remove(link)
	return os.Symlink(resolvedPath, link)
}

// DeleteFromRunlevel removes the membership symlink, if present.
func (l *Layout) DeleteFromRunlevel(runlevelsRoot, runlevel, service string) error {
	err := os.Remove(filepath.Join(runlevelsRoot, runlevel, service))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListRunlevel returns the service names that are members of runlevel,
// for the rc-status dashboard and for appenv's runlevel transition.
func (l *Layout) ListRunlevel(runlevelsRoot, runlevel string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(runlevelsRoot, runlevel))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// ListRunlevels returns the names of every runlevel directory that
// exists under runlevelsRoot.
func ListRunlevels(runlevelsRoot string) ([]string, error) {
	entries, err := os.ReadDir(runlevelsRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
