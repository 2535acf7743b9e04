package depgraph

import "strings"

// PrunePlatform implements spec 4.2's platform pruning pass, which must run
// before Backlink. A service whose keyword set contains "-<sys>" or
// "nos<sys>" (sys lower-cased) is removed from the graph entirely. Any
// abstract name the pruned service provided is also un-referenced: if no
// surviving service still provides it, every edge pointing at that name is
// dropped too, so a consumer doesn't wait on a provider that no longer
// exists on this platform.
func PrunePlatform(g *Graph, systemType string) {
	if systemType == "" {
		return
	}
	sys := strings.ToLower(systemType)
	excludeTokens := map[string]bool{
		"-" + sys:   true,
		"nos" + sys: true,
	}

	var pruned []string
	for _, name := range g.Names() {
		n := g.Nodes[name]
		for _, kw := range n.Keyword.Slice() {
			if excludeTokens[kw] {
				pruned = append(pruned, name)
				break
			}
		}
	}
	if len(pruned) == 0 {
		return
	}

	orphanCandidates := newOrderedSet()
	for _, name := range pruned {
		for _, provided := range g.Nodes[name].Edges[KindProvide].Slice() {
			orphanCandidates.Add(provided)
		}
	}

	for _, name := range pruned {
		g.DeleteNode(name)
	}

	for _, abstractName := range orphanCandidates.Slice() {
		if stillProvided(g, abstractName) {
			continue
		}
		for _, name := range g.Names() {
			n := g.Nodes[name]
			for k := Kind(0); int(k) < int(numKinds); k++ {
				n.Edges[k].Remove(abstractName)
			}
		}
	}
}

func stillProvided(g *Graph, abstractName string) bool {
	for _, name := range g.Names() {
		if g.Nodes[name].Edges[KindProvide].Contains(abstractName) {
			return true
		}
	}
	return false
}
