package runscript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvironmentBuildFiltersAndSetsFixedVars(t *testing.T) {
	t.Setenv("TERM", "xterm")
	t.Setenv("SOME_RANDOM_VAR", "should-not-survive")

	env := Environment{SvcName: "sshd", OpenRCPID: 1234, Runlevel: "default", Path: "/usr/bin:/bin"}
	out := env.Build()

	has := func(kv string) bool {
		for _, v := range out {
			if v == kv {
				return true
			}
		}
		return false
	}
	if !has("RC_SVCNAME=sshd") {
		t.Errorf("Build() missing RC_SVCNAME, got %v", out)
	}
	if !has("RC_OPENRC_PID=1234") {
		t.Errorf("Build() missing RC_OPENRC_PID, got %v", out)
	}
	if !has("TERM=xterm") {
		t.Errorf("Build() dropped allow-listed TERM, got %v", out)
	}
	for _, v := range out {
		if strings.HasPrefix(v, "SOME_RANDOM_VAR=") {
			t.Errorf("Build() leaked non-allow-listed SOME_RANDOM_VAR: %v", out)
		}
	}
}

func TestEnvironmentBuildAppliesProfileDefaults(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.env")
	if err := os.WriteFile(profile, []byte("LANG=C.UTF-8\n# comment\n"), 0o644); err != nil {
		t.Fatalf("write profile.env: %v", err)
	}

	env := Environment{SvcName: "sshd", Path: "/usr/bin", ProfileEnv: profile}
	out := env.Build()

	found := false
	for _, v := range out {
		if v == "LANG=C.UTF-8" {
			found = true
		}
	}
	if !found {
		t.Errorf("Build() = %v, want LANG backfilled from profile.env", out)
	}
}

func TestEnvironmentBuildUserModeAddsXDGVars(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	env := Environment{SvcName: "sshd", Path: "/usr/bin", UserMode: true}
	out := env.Build()

	found := false
	for _, v := range out {
		if v == "XDG_RUNTIME_DIR=/run/user/1000" {
			found = true
		}
	}
	if !found {
		t.Errorf("Build() in user mode = %v, want XDG_RUNTIME_DIR kept", out)
	}
}
