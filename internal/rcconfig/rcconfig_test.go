package rcconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefault(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultRunlevel != "default" {
		t.Errorf("DefaultRunlevel = %q, want default", cfg.DefaultRunlevel)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	content := "user_mode: true\ndefault_runlevel: multiuser\nhotplug_allow:\n  - net.eth0\n"
	if err := os.WriteFile(filepath.Join(dir, "rc.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write rc.yaml: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.UserMode {
		t.Error("UserMode = false, want true")
	}
	if cfg.DefaultRunlevel != "multiuser" {
		t.Errorf("DefaultRunlevel = %q, want multiuser", cfg.DefaultRunlevel)
	}
	if !cfg.AllowsHotplug("net.eth0") {
		t.Error("AllowsHotplug(net.eth0) = false, want true")
	}
	if cfg.AllowsHotplug("net.eth1") {
		t.Error("AllowsHotplug(net.eth1) = true, want false")
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	content := "rc_parallel = true\ndefault_timeout_seconds = 30\n"
	if err := os.WriteFile(filepath.Join(dir, "rc.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write rc.toml: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.RCParallel {
		t.Error("RCParallel = false, want true")
	}
	if cfg.DefaultTimeoutSeconds != 30 {
		t.Errorf("DefaultTimeoutSeconds = %d, want 30", cfg.DefaultTimeoutSeconds)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	content := `{"rc_sys": "docker", "unicode": false}`
	if err := os.WriteFile(filepath.Join(dir, "rc.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write rc.json: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SystemTypeOverride != "docker" {
		t.Errorf("SystemTypeOverride = %q, want docker", cfg.SystemTypeOverride)
	}
	if cfg.UnicodeOutput {
		t.Error("UnicodeOutput = true, want false (explicit override)")
	}
}

func TestFindPrefersYAMLOverToml(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"rc.toml", "rc.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Base(got) != "rc.yaml" {
		t.Errorf("Find() = %q, want rc.yaml (first in search order)", got)
	}
}
