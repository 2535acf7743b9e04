package depgraph

import (
	"fmt"
	"sort"
)

// maxCycleIterations bounds cycle-breaking re-expansion passes (spec 4.2:
// "an iteration limit (128)").
const maxCycleIterations = 128

// maxEnumeratedCyclesPerPass caps how many elementary S->...->S paths are
// collected in one pass, a practical bound the spec's bitmatrix design note
// doesn't need (it works in closure space) but a path-enumerating
// implementation does, to keep pathological fan-out graphs from exploding.
const maxEnumeratedCyclesPerPass = 4096

// cycleKinds are the four aggregate kinds the cycle analysis operates over,
// per spec 4.2 and the design note in spec 9.
var cycleKinds = []Kind{KindUse, KindAfter, KindNeed, KindProvidedBy}

type hop struct {
	from, to string
	kind     Kind
}

// mixedAdjacency builds, for every node, the union of its neighbors across
// the four cycle-analysis kinds, annotated with the cheapest kind
// connecting each pair (ties broken by cycleKinds order).
func mixedAdjacency(g *Graph) map[string][]hop {
	adj := make(map[string][]hop)
	for _, name := range g.Names() {
		n := g.Nodes[name]
		cheapest := make(map[string]Kind)
		var order []string
		for _, k := range cycleKinds {
			for _, target := range n.Edges[k].Slice() {
				if _, seen := cheapest[target]; !seen {
					order = append(order, target)
				}
				if existing, seen := cheapest[target]; !seen || cycleCost[k] < cycleCost[existing] {
					cheapest[target] = k
				}
			}
		}
		for _, target := range order {
			adj[name] = append(adj[name], hop{from: name, to: target, kind: cheapest[target]})
		}
	}
	return adj
}

// closure computes, for each node, the set of nodes reachable from it over
// adj in one or more hops — the "expanded[S]" set from spec 4.2, via
// iterative BFS per node. A node is in its own set only when it lies on a
// cycle.
// This is the bitmatrix-OR-to-fixed-point idea from spec 9 expressed as a
// straightforward reachability scan rather than literal bit-matrices.
func closure(g *Graph, adj map[string][]hop) map[string]map[string]bool {
	exp := make(map[string]map[string]bool, len(g.Nodes))
	for _, name := range g.Names() {
		seen := map[string]bool{}
		queue := []string{name}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, h := range adj[cur] {
				if !seen[h.to] {
					seen[h.to] = true
					queue = append(queue, h.to)
				}
			}
		}
		exp[name] = seen
	}
	return exp
}

// CycleError is returned when a cycle cannot be broken (spec S4): its
// cheapest elementary path costs more than an `after` edge, meaning a
// `need` or `providedby` edge is load-bearing on every way back to the
// start.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle cannot be broken (%d unsolvable cycle(s))", len(e.Cycles))
}

// BreakCycles runs spec 4.2's cycle detection and breaking pass in place on
// g. It must run after Backlink. Each pass drops the single most frequent
// droppable edge and re-expands. Returns a *CycleError when every
// discovered cycle costs more than the `after` cost band, when no cycle
// edge is droppable, or when the iteration limit is reached.
func BreakCycles(g *Graph) error {
	for iter := 0; iter < maxCycleIterations; iter++ {
		adj := mixedAdjacency(g)
		exp := closure(g, adj)

		var onCycle []string
		for _, name := range g.Names() {
			if exp[name][name] {
				onCycle = append(onCycle, name)
			}
		}
		if len(onCycle) == 0 {
			return nil
		}

		var allCycles [][]hop
		var namedCycles [][]string
		for _, start := range onCycle {
			paths := enumeratePaths(adj, start, maxEnumeratedCyclesPerPass-len(allCycles))
			for _, p := range paths {
				allCycles = append(allCycles, p)
				namedCycles = append(namedCycles, hopsToNames(start, p))
			}
			if len(allCycles) >= maxEnumeratedCyclesPerPass {
				break
			}
		}
		if len(allCycles) == 0 {
			return nil
		}

		minCost := -1
		for _, cyc := range allCycles {
			c := pathCost(cyc)
			if minCost == -1 || c < minCost {
				minCost = c
			}
		}
		if minCost > cycleCost[KindAfter] {
			return &CycleError{Cycles: namedCycles}
		}

		counts := make(map[hop]int)
		var seenOrder []hop
		for _, cyc := range allCycles {
			for _, h := range cyc {
				if _, ok := counts[h]; !ok {
					seenOrder = append(seenOrder, h)
				}
				counts[h]++
			}
		}
		sort.SliceStable(seenOrder, func(i, j int) bool {
			return counts[seenOrder[i]] > counts[seenOrder[j]]
		})

		dropped := false
		for _, h := range seenOrder {
			if cycleCost[h.kind] > cycleCost[KindAfter] {
				continue
			}
			dropEdgeAndMirror(g, h)
			dropped = true
			break
		}
		if !dropped {
			return &CycleError{Cycles: namedCycles}
		}
	}
	return &CycleError{}
}

func hopsToNames(start string, path []hop) []string {
	names := []string{start}
	for _, h := range path {
		names = append(names, h.to)
	}
	return names
}

func pathCost(path []hop) int {
	max := 0
	for _, h := range path {
		if c := cycleCost[h.kind]; c > max {
			max = c
		}
	}
	return max
}

// enumeratePaths performs a bounded DFS enumeration of elementary paths
// from start back to start over adj, mirroring the design note's intent to
// avoid recursive pointer walks while still needing concrete cycles to
// price and break. limit caps how many it collects.
func enumeratePaths(adj map[string][]hop, start string, limit int) [][]hop {
	if limit <= 0 {
		return nil
	}
	var results [][]hop
	visited := map[string]bool{start: true}
	var path []hop

	var dfs func(cur string)
	dfs = func(cur string) {
		if len(results) >= limit {
			return
		}
		for _, h := range adj[cur] {
			if h.to == start && len(path) > 0 {
				cyc := append([]hop(nil), path...)
				cyc = append(cyc, h)
				results = append(results, cyc)
				if len(results) >= limit {
					return
				}
				continue
			}
			if visited[h.to] {
				continue
			}
			visited[h.to] = true
			path = append(path, h)
			dfs(h.to)
			path = path[:len(path)-1]
			visited[h.to] = false
		}
	}
	dfs(start)
	return results
}

func dropEdgeAndMirror(g *Graph, h hop) {
	if !g.Has(h.from) {
		return
	}
	g.Nodes[h.from].Edges[h.kind].Remove(h.to)
	if rev, ok := mirrorKind(h.kind); ok && g.Has(h.to) {
		g.Nodes[h.to].Edges[rev].Remove(h.from)
	}
}
