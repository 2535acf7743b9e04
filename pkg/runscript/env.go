// Package runscript implements C4: the per-service verb driver that
// resolves dependencies through pkg/depgraph, guards transitions with
// pkg/svcstate, and execs the service's verb body under a timeout and
// signal policy.
package runscript

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// systemAllow is the base environment allow-list a verb body is permitted
// to inherit, grounded on openrc-run.c's env_filter.
var systemAllow = []string{
	"EERROR_QUIET", "EINFO_QUIET", "IN_BACKGROUND", "IN_DRYRUN", "IN_HOTPLUG",
	"RC_DEBUG", "RC_NODEPS", "RC_USER_SERVICES",
	"LANG", "LC_MESSAGES", "TERM", "EINFO_COLOR", "EINFO_VERBOSE",
}

// userModeAllow extends the allow-list in per-user mode, where the body
// additionally needs the XDG/session variables it was started with.
var userModeAllow = []string{
	"USER", "LOGNAME", "HOME", "SHELL",
	"XDG_RUNTIME_DIR", "XDG_CONFIG_HOME", "XDG_STATE_HOME", "XDG_CACHE_HOME",
}

// Environment describes the fixed per-invocation facts a verb body expects
// beyond the filtered ambient environment.
type Environment struct {
	SvcName     string
	OpenRCPID   int
	Runlevel    string
	Path        string
	UserMode    bool
	ProfileEnv  string // path to profile.env, appended for unset values
	OverrideVar string // allow-list variable name holding user overrides, e.g. "rc_env_allow"
}

// Build constructs the final environment slice (as "KEY=VALUE" strings)
// for the verb body: filter, apply user overrides, append profile.env
// defaults, then set the fixed RC_* variables, per spec 4.4 step 2-3.
func (e Environment) Build() []string {
	allow := append(append([]string{}, systemAllow...), e.extraAllow()...)
	keep := make(map[string]bool, len(allow))
	for _, k := range allow {
		keep[k] = true
	}

	var out []string
	for _, kv := range os.Environ() {
		k, _, ok := strings.Cut(kv, "=")
		if ok && keep[k] {
			out = append(out, kv)
		}
	}

	if override := os.Getenv(e.OverrideVar); e.OverrideVar != "" && override != "" {
		for _, k := range strings.Fields(override) {
			if v, ok := os.LookupEnv(k); ok {
				out = append(out, k+"="+v)
			}
		}
	}

	present := map[string]bool{}
	for _, kv := range out {
		k, _, _ := strings.Cut(kv, "=")
		present[k] = true
	}
	for k, v := range readProfileEnv(e.ProfileEnv) {
		if !present[k] {
			out = append(out, k+"="+v)
		}
	}

	out = append(out,
		"RC_SVCNAME="+e.SvcName,
		"PATH="+e.Path,
	)
	if e.OpenRCPID != 0 {
		out = append(out, "RC_OPENRC_PID="+strconv.Itoa(e.OpenRCPID))
	}
	if e.Runlevel != "" {
		out = append(out, "RC_RUNLEVEL="+e.Runlevel)
	}
	return out
}

func (e Environment) extraAllow() []string {
	if e.UserMode {
		return userModeAllow
	}
	return nil
}

// readProfileEnv parses a simple KEY=VALUE file, one assignment per line,
// ignoring blanks and #-comments, used to backfill variables the filtered
// environment left unset.
func readProfileEnv(path string) map[string]string {
	out := map[string]string{}
	if path == "" {
		return out
	}
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if ok {
			out[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return out
}

// WorkDir returns the directory a verb body should be exec'd from: "/" in
// system mode, $HOME in user mode, per spec 4.4 step 1.
func WorkDir(userMode bool) string {
	if userMode {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	return string(filepath.Separator)
}
