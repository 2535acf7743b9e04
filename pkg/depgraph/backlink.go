package depgraph

// Backlink performs the symmetric-closure pass of spec 4.2: for every
// declared forward edge A->B of kind K with a defined reverse kind K', it
// inserts B->A of kind K'. A `need` edge whose target does not exist in the
// graph is recorded in A's Broken set instead of producing a reverse edge;
// that is the only kind for which a missing target is tracked, matching
// the concrete backlinking algorithm in spec 4.2 (as opposed to the more
// general invariant summary in spec 3, which this implementation follows
// literally since it is the operational description).
//
// `provide` is special-cased: the abstract target of a provide edge is not
// expected to be a real, independently-declared service, so its node is
// created on demand to hold the providedby backlink.
func Backlink(g *Graph) {
	names := g.Names()
	for _, name := range names {
		n := g.Nodes[name]
		for _, fwd := range forwardKinds {
			rev, ok := reverseOf[fwd]
			if !ok {
				continue
			}
			for _, target := range n.Edges[fwd].Slice() {
				if fwd == KindProvide {
					g.Node(target).Edges[rev].Add(name)
					continue
				}
				if !g.Has(target) {
					if fwd == KindNeed {
						n.Broken.Add(target)
					}
					continue
				}
				g.Nodes[target].Edges[rev].Add(name)
			}
		}
	}
}
