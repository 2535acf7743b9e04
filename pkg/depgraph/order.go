package depgraph

// StatusLookup reports a service's current runtime status for provider
// selection (spec 4.2); callers normally back this with pkg/svcstate.
type StatusLookup func(name string) Candidate

// orderKinds are the edge kinds DFS recurses over when building a plan:
// need, use, want, after (spec 4.2's "Ordering" paragraph).
var orderKinds = []Kind{KindNeed, KindUse, KindWant, KindAfter}

type orderer struct {
	g        *Graph
	op       Operation
	runlevel string
	svcName  string
	status   StatusLookup
	gen      int
	visited  map[string]int
	emitted  *orderedSet
}

// Order returns the ordered list of services to transition for entryPoints
// under the given operation/runlevel, per spec 4.2. Traversal is DFS over
// need∪use∪want∪after with a monotonic visited marker so repeated calls on
// the same graph remain stable without needing a reset pass. Before
// recursing into an edge whose target is an abstract provider group (i.e.
// it has a nonempty ProvidedBy set), the provider selection policy chooses
// the concrete service(s) to visit instead. A service is omitted from the
// plan if it is itself an abstract provider group, unless it was given
// directly as an entry point, and it is never emitted if its name equals
// svcName (the caller's own RC_SVCNAME, which must not wait on itself).
func Order(g *Graph, entryPoints []string, op Operation, runlevel, svcName string, status StatusLookup) []string {
	o := &orderer{
		g:        g,
		op:       op,
		runlevel: runlevel,
		svcName:  svcName,
		status:   status,
		gen:      g.nextVisitGen(),
		visited:  make(map[string]int),
		emitted:  newOrderedSet(),
	}
	entrySet := make(map[string]bool, len(entryPoints))
	for _, e := range entryPoints {
		entrySet[e] = true
	}
	for _, e := range entryPoints {
		o.visit(e, entrySet)
	}
	return o.emitted.Slice()
}

func (o *orderer) visit(name string, entrySet map[string]bool) {
	if o.visited[name] == o.gen {
		return
	}
	o.visited[name] = o.gen

	n, ok := o.g.Nodes[name]
	if !ok {
		return
	}

	for _, kind := range orderKinds {
		for _, target := range n.Edges[kind].Slice() {
			o.visitTarget(target, entrySet)
		}
	}

	if name == o.svcName {
		return
	}
	if o.isAbstractGroup(name) && !entrySet[name] {
		return
	}
	o.emitted.Add(name)
}

// isAbstractGroup reports whether name is purely a provider group: some
// other service declares "provide name", recorded as name's ProvidedBy set.
func (o *orderer) isAbstractGroup(name string) bool {
	n, ok := o.g.Nodes[name]
	if !ok {
		return false
	}
	return n.Edges[KindProvidedBy].Len() > 0
}

func (o *orderer) visitTarget(target string, entrySet map[string]bool) {
	n, ok := o.g.Nodes[target]
	if !ok {
		o.visit(target, entrySet)
		return
	}
	providers := n.Edges[KindProvidedBy].Slice()
	if len(providers) == 0 {
		o.visit(target, entrySet)
		return
	}

	var candidates []Candidate
	for _, p := range providers {
		if o.status != nil {
			candidates = append(candidates, o.status(p))
		} else {
			candidates = append(candidates, Candidate{Name: p})
		}
	}
	chosen, ok := SelectProviders(o.op, candidates, o.runlevel)
	if !ok {
		return
	}
	for _, c := range chosen {
		o.visit(c.Name, entrySet)
	}
}
