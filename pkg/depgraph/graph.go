// Package depgraph implements C2: parsing per-service dependency
// declarations, building a back-linked multigraph, detecting and breaking
// cycles, topologically ordering services for a runlevel transition, and
// persisting/reading the deptree cache.
package depgraph

// orderedSet is a small set that preserves insertion order (Remove keeps
// the order of the remaining items), so
// traversal and cache output are stable across runs on the same input —
// relied on by order.go's visited-marker DFS and by the deptree writer.
type orderedSet struct {
	items []string
	has   map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{has: make(map[string]bool)}
}

func (s *orderedSet) Add(v string) {
	if s.has[v] {
		return
	}
	s.has[v] = true
	s.items = append(s.items, v)
}

func (s *orderedSet) Remove(v string) {
	if !s.has[v] {
		return
	}
	delete(s.has, v)
	for i, item := range s.items {
		if item == v {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
}

func (s *orderedSet) Contains(v string) bool { return s.has[v] }
func (s *orderedSet) Slice() []string        { return append([]string(nil), s.items...) }
func (s *orderedSet) Len() int               { return len(s.items) }

// Node is one service in the dependency graph: its declared edges by kind,
// its broken-need set, its keyword tags, and the config-file list that
// affects cache freshness (spec 4.2's "config" TYPE accumulation).
type Node struct {
	Name    string
	Edges   map[Kind]*orderedSet
	Broken  *orderedSet
	Keyword *orderedSet
	Config  []string
}

func newNode(name string) *Node {
	n := &Node{
		Name:    name,
		Edges:   make(map[Kind]*orderedSet),
		Broken:  newOrderedSet(),
		Keyword: newOrderedSet(),
	}
	for k := Kind(0); int(k) < int(numKinds); k++ {
		n.Edges[k] = newOrderedSet()
	}
	return n
}

// addEdge declares a forward or reverse edge of kind k from this node to
// target, or removes it if remove is true (the "!token" convention).
func (n *Node) addEdge(k Kind, target string, remove bool) {
	if remove {
		n.Edges[k].Remove(target)
		return
	}
	n.Edges[k].Add(target)
}

// Graph is the full set of nodes, indexed by service name, in first-seen
// order so iteration (and therefore cache serialization) is deterministic.
type Graph struct {
	Nodes map[string]*Node
	order []string
	// visitGen is the monotonically increasing traversal-pass counter
	// order.go uses as the node visited-marker, per spec 4.2 and the
	// design note in spec 9: an integer generation rather than a boolean,
	// so successive plans on the same graph don't need to reset markers.
	visitGen int
}

// nextVisitGen returns a fresh generation number for one ordering pass.
func (g *Graph) nextVisitGen() int {
	g.visitGen++
	return g.visitGen
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// Node returns the named node, creating it if absent.
func (g *Graph) Node(name string) *Node {
	if n, ok := g.Nodes[name]; ok {
		return n
	}
	n := newNode(name)
	g.Nodes[name] = n
	g.order = append(g.order, name)
	return n
}

// Has reports whether name is a known node.
func (g *Graph) Has(name string) bool {
	_, ok := g.Nodes[name]
	return ok
}

// Names returns every node name in first-seen order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// DeleteNode removes name and every edge referencing it from the graph,
// used by platform pruning (spec 4.2).
func (g *Graph) DeleteNode(name string) {
	if !g.Has(name) {
		return
	}
	delete(g.Nodes, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	for _, n := range g.Nodes {
		for k := Kind(0); int(k) < int(numKinds); k++ {
			n.Edges[k].Remove(name)
		}
		n.Broken.Remove(name)
	}
}
