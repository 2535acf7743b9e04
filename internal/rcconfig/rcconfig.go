// Package rcconfig loads the manager's own ambient settings, distinct
// from the per-service key=value files pkg/rcpath reads and writes.
// Grounded on the teacher's cmd/config.LoadConfigFile multi-format loader.
package rcconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"
)

// SearchFiles lists the manager config file names, searched in this
// order under the directory passed to Load.
var SearchFiles = []string{"rc.yaml", "rc.yml", "rc.toml", "rc.json"}

// Config holds the manager-level settings that apply across every
// service, as opposed to one service's option files.
type Config struct {
	// UserMode runs the manager as an unprivileged per-user service
	// supervisor (adds Layout.UserInitDir ahead of the system tree).
	UserMode bool `yaml:"user_mode" toml:"user_mode" json:"user_mode"`

	// DefaultRunlevel names the runlevel openrc-init transitions to
	// after "sysinit" and "boot" complete.
	DefaultRunlevel string `yaml:"default_runlevel" toml:"default_runlevel" json:"default_runlevel"`

	// RCParallel enables unordered same-wave verb execution in pkg/runscript,
	// the Go-native analogue of the original's rc_parallel knob.
	RCParallel bool `yaml:"rc_parallel" toml:"rc_parallel" json:"rc_parallel"`

	// HotplugAllow lists service names allowed to be hotplug-started in
	// response to a udev-style device event; empty means none are.
	HotplugAllow []string `yaml:"hotplug_allow" toml:"hotplug_allow" json:"hotplug_allow"`

	// UnicodeOutput is loaded from the config file; rc-status and the tui
	// do not read it and render the same output either way.
	UnicodeOutput bool `yaml:"unicode" toml:"unicode" json:"unicode"`

	// DefaultTimeoutSeconds is loaded from the config file; pkg/runscript
	// does not read it and uses its fixed WarnTimeout/WaitTimeout instead.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds" toml:"default_timeout_seconds" json:"default_timeout_seconds"`

	// SystemTypeOverride is loaded from the config file (e.g. "prefix",
	// "docker"); no caller passes it to depgraph.PrunePlatform, and no
	// system type is auto-detected.
	SystemTypeOverride string `yaml:"rc_sys" toml:"rc_sys" json:"rc_sys"`
}

// Default returns the zero-config manager defaults, applied whenever no
// rc.{yaml,yml,toml,json} is found.
func Default() *Config {
	return &Config{
		DefaultRunlevel:       "default",
		DefaultTimeoutSeconds: 90,
		UnicodeOutput:         true,
	}
}

// Load searches dir for a supported config file and parses it, falling
// back to Default() when none is present.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile parses one config file, selecting a parser by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rcconfig: read %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("rcconfig: parse yaml %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("rcconfig: parse toml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("rcconfig: parse json %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("rcconfig: unsupported config extension %q", filepath.Ext(path))
	}
	return cfg, nil
}

// Find returns the first existing config file under dir in SearchFiles
// order.
func Find(dir string) (string, error) {
	for _, name := range SearchFiles {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("rcconfig: no rc.{yaml,yml,toml,json} under %s", dir)
}

// AllowsHotplug reports whether svc appears in the hotplug allow-list.
func (c *Config) AllowsHotplug(svc string) bool {
	for _, s := range c.HotplugAllow {
		if s == svc {
			return true
		}
	}
	return false
}
