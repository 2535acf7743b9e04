package depgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serviceLineRe matches depinfo_<I>_service='<NAME>'.
var serviceLineRe = regexp.MustCompile(`^depinfo_(\d+)_service='(.*)'$`)

// formatLineRe matches the leading depinfo_format='<version>' line.
var formatLineRe = regexp.MustCompile(`^depinfo_format='(.*)'$`)

// tokenLineRe matches depinfo_<I>_<TYPE>_<K>='<NAME>'.
var tokenLineRe = regexp.MustCompile(`^depinfo_(\d+)_([A-Za-z]+)_(\d+)='(.*)'$`)

// quoteShell single-quotes a value for the deptree cache format. The cache
// format (spec 6) only supports shell-safe values; a value containing a
// single quote cannot be represented and is rejected rather than silently
// corrupting the cache.
func quoteShell(v string) (string, error) {
	if strings.ContainsAny(v, "'\n") {
		return "", fmt.Errorf("depgraph: value %q is not representable in the deptree cache format", v)
	}
	return "'" + v + "'", nil
}

// WriteCache serializes g to w in the deptree cache format described in
// spec 6: one depinfo_<I>_service line per node, followed by
// depinfo_<I>_<TYPE>_<K> lines for every token of every kind, in the fixed
// kind order of the bijective name table.
func WriteCache(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "depinfo_format='%s'\n", CacheFormatVersion)
	for i, name := range g.Names() {
		q, err := quoteShell(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "depinfo_%d_service=%s\n", i, q)

		n := g.Nodes[name]
		for k := Kind(0); int(k) < int(numKinds); k++ {
			var tokens []string
			switch k {
			case KindBroken:
				tokens = n.Broken.Slice()
			case KindKeyword:
				tokens = n.Keyword.Slice()
			default:
				tokens = n.Edges[k].Slice()
			}
			for j, tok := range tokens {
				q, err := quoteShell(tok)
				if err != nil {
					return err
				}
				fmt.Fprintf(bw, "depinfo_%d_%s_%d=%s\n", i, k.String(), j, q)
			}
		}
	}
	return bw.Flush()
}

// ReadCache parses a deptree cache previously written by WriteCache back
// into a Graph.
func ReadCache(r io.Reader) (*Graph, error) {
	g := NewGraph()
	indexName := make(map[int]string)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := formatLineRe.FindStringSubmatch(line); m != nil {
			ok, err := CheckCacheFormatVersion(m[1])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("depgraph: cache format version %q is incompatible with %s", m[1], CacheFormatVersion)
			}
			continue
		}
		if m := serviceLineRe.FindStringSubmatch(line); m != nil {
			idx, _ := strconv.Atoi(m[1])
			indexName[idx] = m[2]
			g.Node(m[2])
			continue
		}
		m := tokenLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		typeName := m[2]
		value := m[4]
		name, ok := indexName[idx]
		if !ok {
			continue
		}
		n := g.Node(name)
		switch typeName {
		case "broken":
			n.Broken.Add(value)
		case "keyword":
			n.Keyword.Add(value)
		default:
			if k, ok := ParseKind(typeName); ok {
				n.Edges[k].Add(value)
			}
		}
	}
	return g, sc.Err()
}

// WriteDepConfig writes the flat, deduplicated list of external config
// paths accumulated via each node's "config" declarations (spec 4.2's
// parsing rule) to the depconfig file (spec 6), one path per line.
func WriteDepConfig(w io.Writer, g *Graph) error {
	seen := newOrderedSet()
	for _, name := range g.Names() {
		for _, c := range g.Nodes[name].Config {
			seen.Add(c)
		}
	}
	bw := bufio.NewWriter(w)
	for _, path := range seen.Slice() {
		fmt.Fprintln(bw, path)
	}
	return bw.Flush()
}

// ReadDepConfig reads a depconfig file back into a slice of paths.
func ReadDepConfig(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, sc.Err()
}

// cacheSkewMarker is the name of the file IsStale's caller writes when a
// clock-skew-forced mtime bump was needed, so operators can tell the
// difference between "cache genuinely rebuilt" and "cache mtime forced
// forward to paper over a skewed clock".
const cacheSkewMarker = ".deptree-clock-skew"

// IsStale implements spec 4.2's cache validity rule: the cache is stale if
// it is missing, or older than any file reachable from watchRoots (the
// init-script roots, the main/user config files, and every path listed in
// depconfig). Directories in watchRoots are walked recursively.
func IsStale(cachePath string, watchRoots []string) (bool, error) {
	cacheInfo, err := os.Stat(cachePath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	newest, err := newestMtime(watchRoots)
	if err != nil {
		return false, err
	}
	return newest.After(cacheInfo.ModTime()), nil
}

func newestMtime(paths []string) (time.Time, error) {
	var newest time.Time
	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
			return nil
		})
		if err != nil {
			return time.Time{}, err
		}
	}
	return newest, nil
}

// ReconcileClockSkew implements the clock-skew branch of spec 4.2's cache
// validity rule: after rebuilding the cache, if its mtime is still behind
// the newest input (a clock running backwards on whatever wrote the
// inputs), write a marker file and force the cache's mtime forward past
// the newest input.
func ReconcileClockSkew(cachePath, markerDir string, watchRoots []string) error {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return err
	}
	newest, err := newestMtime(watchRoots)
	if err != nil {
		return err
	}
	if !newest.After(cacheInfo.ModTime()) {
		return nil
	}
	forced := newest.Add(time.Second)
	if err := os.Chtimes(cachePath, forced, forced); err != nil {
		return err
	}
	marker := filepath.Join(markerDir, cacheSkewMarker)
	return os.WriteFile(marker, []byte(forced.Format(time.RFC3339Nano)+"\n"), 0o644)
}
