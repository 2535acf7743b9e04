package depgraph

import (
	"strings"
	"testing"
)

func TestParseDependInfoIgnoresNoise(t *testing.T) {
	input := `
sshd ineed net
sshd iuse functions.sh
sshd iuse sshd
sshd ixyz bogus
net iprovide net
`
	g, err := ParseDependInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	sshd := g.Node("sshd")
	if got := sshd.Edges[KindNeed].Slice(); len(got) != 1 || got[0] != "net" {
		t.Fatalf("ineed edges = %v, want [net]", got)
	}
	if got := sshd.Edges[KindUse].Slice(); len(got) != 0 {
		t.Errorf("iuse edges = %v, want empty (functions.sh and self excluded)", got)
	}
}

func TestParseDependInfoRemovalToken(t *testing.T) {
	input := `
sshd ineed net
sshd ineed !net
sshd ineed dns
`
	g, err := ParseDependInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	got := g.Node("sshd").Edges[KindNeed].Slice()
	if len(got) != 1 || got[0] != "dns" {
		t.Fatalf("ineed edges after removal = %v, want [dns]", got)
	}
}

func TestParseDependInfoConfigAccumulates(t *testing.T) {
	input := `
sshd config /etc/ssh/sshd_config
sshd config /etc/conf.d/sshd
`
	g, err := ParseDependInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	cfg := g.Node("sshd").Config
	if len(cfg) != 2 {
		t.Fatalf("Config = %v, want 2 entries", cfg)
	}
}

func TestParseDependInfoKeyword(t *testing.T) {
	input := `fsck keyword -timeout notimeout`
	g, err := ParseDependInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	kw := g.Node("fsck").Keyword
	if !kw.Contains("-timeout") || !kw.Contains("notimeout") {
		t.Errorf("Keyword = %v, want -timeout and notimeout", kw.Slice())
	}
}
