package depgraph

import (
	"bufio"
	"io"
	"strings"
)

// ParseDependInfo reads lines of the form "SERVICE TYPE TOKEN ..." as
// produced by the external shell harness that introspects each service's
// depend() function (spec 4.2). Consecutive lines for the same SERVICE are
// grouped into one node; a TOKEN ending in ".sh", equal to SERVICE itself,
// or belonging to an unrecognized TYPE is ignored. A "!"-prefixed token
// removes an already-declared edge of that kind (used when a later
// depend() call retracts an earlier one in the same harness run). "config"
// lines accumulate the node's cache-freshness file list instead of an edge.
func ParseDependInfo(r io.Reader) (*Graph, error) {
	g := NewGraph()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		service, typ := fields[0], fields[1]
		tokens := fields[2:]
		node := g.Node(service)

		if typ == "config" {
			for _, tok := range tokens {
				node.Config = append(node.Config, tok)
			}
			continue
		}

		kind, ok := ParseKind(typ)
		if !ok {
			continue
		}

		for _, tok := range tokens {
			remove := false
			if strings.HasPrefix(tok, "!") {
				remove = true
				tok = tok[1:]
			}
			if tok == "" || tok == service || strings.HasSuffix(tok, ".sh") {
				continue
			}
			if kind == KindKeyword {
				if remove {
					node.Keyword.Remove(tok)
				} else {
					node.Keyword.Add(tok)
				}
				continue
			}
			node.addEdge(kind, tok, remove)
		}
	}
	return g, sc.Err()
}
