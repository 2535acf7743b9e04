package supervise

import (
	"testing"
	"time"

	"openrc-go/pkg/rcpath"
)

func TestLoadDescriptorDefaults(t *testing.T) {
	layout := &rcpath.Layout{StateDir: t.TempDir()}
	desc, err := LoadDescriptor(layout, "sshd")
	if err != nil {
		t.Fatalf("LoadDescriptor: %v", err)
	}
	if desc.RespawnMax != DefaultRespawnMax {
		t.Errorf("RespawnMax = %d, want default %d", desc.RespawnMax, DefaultRespawnMax)
	}
	if desc.Exec != "" || desc.Chroot != "" {
		t.Errorf("expected zero-value Descriptor fields, got %+v", desc)
	}
}

func TestLoadDescriptorReadsValues(t *testing.T) {
	layout := &rcpath.Layout{StateDir: t.TempDir()}
	if err := layout.ValueSet("sshd", "exec", "/usr/sbin/sshd"); err != nil {
		t.Fatalf("ValueSet exec: %v", err)
	}
	if err := layout.ValueSet("sshd", "argc", "2"); err != nil {
		t.Fatalf("ValueSet argc: %v", err)
	}
	if err := layout.ValueSet("sshd", "argv", "sshd\n-D"); err != nil {
		t.Fatalf("ValueSet argv: %v", err)
	}
	if err := layout.ValueSet("sshd", "nicelevel", "5"); err != nil {
		t.Fatalf("ValueSet nicelevel: %v", err)
	}
	if err := layout.ValueSet("sshd", "respawn-period", "30"); err != nil {
		t.Fatalf("ValueSet respawn-period: %v", err)
	}

	desc, err := LoadDescriptor(layout, "sshd")
	if err != nil {
		t.Fatalf("LoadDescriptor: %v", err)
	}
	if desc.Exec != "/usr/sbin/sshd" {
		t.Errorf("Exec = %q, want /usr/sbin/sshd", desc.Exec)
	}
	if len(desc.Argv) != 2 || desc.Argv[0] != "sshd" || desc.Argv[1] != "-D" {
		t.Errorf("Argv = %v, want [sshd -D]", desc.Argv)
	}
	if !desc.HasNicelevel || desc.Nicelevel != 5 {
		t.Errorf("Nicelevel = %d (has=%v), want 5 (has=true)", desc.Nicelevel, desc.HasNicelevel)
	}
	if desc.RespawnPeriod != 30*time.Second {
		t.Errorf("RespawnPeriod = %v, want 30s", desc.RespawnPeriod)
	}
}

func TestParseDurationAcceptsBareSecondsOrSuffix(t *testing.T) {
	cases := map[string]time.Duration{
		"":     0,
		"5":    5 * time.Second,
		"250ms": 250 * time.Millisecond,
		"2s":   2 * time.Second,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		if err != nil {
			t.Errorf("parseDuration(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseNotify(t *testing.T) {
	cases := []struct {
		in      string
		want    NotifySpec
		wantErr bool
	}{
		{"", NotifySpec{Kind: NotifyNone}, false},
		{"fd:3", NotifySpec{Kind: NotifyFD, FD: 3}, false},
		{"socket:ready", NotifySpec{Kind: NotifySocket}, false},
		{"socket:bogus", NotifySpec{}, true},
		{"bogus", NotifySpec{}, true},
		{"fd:notanumber", NotifySpec{}, true},
	}
	for _, tc := range cases {
		got, err := ParseNotify(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseNotify(%q) = %+v, nil, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseNotify(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseNotify(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestYesno(t *testing.T) {
	truthy := []string{"yes", "Y", "true", "1"}
	for _, v := range truthy {
		if !yesno(v) {
			t.Errorf("yesno(%q) = false, want true", v)
		}
	}
	falsy := []string{"no", "", "0", "bogus"}
	for _, v := range falsy {
		if yesno(v) {
			t.Errorf("yesno(%q) = true, want false", v)
		}
	}
}
