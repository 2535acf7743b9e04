package runscript

import "testing"

func TestPlugAllowedWithoutHotplug(t *testing.T) {
	if !PlugAllowed("sshd", false, nil) {
		t.Errorf("PlugAllowed() = false outside hotplug, want true")
	}
}

func TestPlugAllowedGlobMatch(t *testing.T) {
	if !PlugAllowed("eth0", true, []string{"eth*"}) {
		t.Errorf("PlugAllowed() = false, want true: eth0 matches eth*")
	}
	if PlugAllowed("wlan0", true, []string{"eth*"}) {
		t.Errorf("PlugAllowed() = true, want false: wlan0 does not match eth*")
	}
}

func TestPlugDenialWinsWhenReached(t *testing.T) {
	rules := []string{"eth*", "!eth1"}
	if !PlugAllowed("eth0", true, rules) {
		t.Errorf("PlugAllowed(eth0) = false, want true")
	}
	if PlugAllowed("eth1", true, rules) {
		t.Errorf("PlugAllowed(eth1) = true, want false: later !eth1 denial wins")
	}
}
