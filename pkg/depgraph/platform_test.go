package depgraph

import (
	"strings"
	"testing"
)

func TestPrunePlatformRemovesExcludedService(t *testing.T) {
	g, err := ParseDependInfo(strings.NewReader(`
vzquota keyword -openvz
sshd iuse vzquota
`))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}

	PrunePlatform(g, "OpenVZ")

	if g.Has("vzquota") {
		t.Errorf("vzquota should have been pruned for system type openvz")
	}
	if g.Node("sshd").Edges[KindUse].Contains("vzquota") {
		t.Errorf("sshd should no longer reference pruned vzquota")
	}
}

func TestPrunePlatformOrphansAbstractProvider(t *testing.T) {
	g, err := ParseDependInfo(strings.NewReader(`
eth0 keyword nosuser
eth0 iprovide net
sshd ineed net
`))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}

	PrunePlatform(g, "user")

	if g.Node("sshd").Edges[KindNeed].Contains("net") {
		t.Errorf("sshd should no longer reference net once its only provider is pruned")
	}
}
