package depgraph

import (
	"strings"
	"testing"
)

// TestOrderRespectsNeed covers spec 8 property 4 and scenario S1: A need B
// orders B strictly before A.
func TestOrderRespectsNeed(t *testing.T) {
	g, err := ParseDependInfo(strings.NewReader("A ineed B\n"))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	g.Node("B")
	Backlink(g)

	order := Order(g, []string{"A"}, OpStart, "default", "", nil)
	idxA, idxB := indexOf(order, "A"), indexOf(order, "B")
	if idxA == -1 || idxB == -1 {
		t.Fatalf("Order() = %v, want both A and B present", order)
	}
	if idxB >= idxA {
		t.Errorf("Order() = %v, want B before A", order)
	}
}

func TestOrderExcludesOwnServiceName(t *testing.T) {
	g, err := ParseDependInfo(strings.NewReader("A ineed B\n"))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	Backlink(g)

	order := Order(g, []string{"A"}, OpStart, "default", "A", nil)
	if indexOf(order, "A") != -1 {
		t.Errorf("Order() = %v, should exclude RC_SVCNAME A", order)
	}
}

func TestOrderResolvesProviderViaStatusLookup(t *testing.T) {
	g, err := ParseDependInfo(strings.NewReader(`
sshd ineed net
eth0 iprovide net
wlan0 iprovide net
`))
	if err != nil {
		t.Fatalf("ParseDependInfo: %v", err)
	}
	Backlink(g)

	status := func(name string) Candidate {
		return Candidate{Name: name, State: "stopped", InRunlevel: name == "eth0"}
	}
	order := Order(g, []string{"sshd"}, OpStart, "default", "", status)

	if indexOf(order, "net") != -1 {
		t.Errorf("Order() = %v, abstract group net should not be emitted", order)
	}
	if indexOf(order, "eth0") == -1 {
		t.Errorf("Order() = %v, want eth0 (the in-runlevel provider) present", order)
	}
	if indexOf(order, "wlan0") != -1 {
		t.Errorf("Order() = %v, wlan0 should not be chosen", order)
	}
	if indexOf(order, "eth0") >= indexOf(order, "sshd") {
		t.Errorf("Order() = %v, want eth0 before sshd", order)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
