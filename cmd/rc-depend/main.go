// Command rc-depend dumps dependency-engine introspection for one
// service: either the resolved ordered start plan, or the raw edge list
// for one of the named kinds (ineed, iuse, iwant, needsme, usesme,
// wantsme, iafter, ibefore, iprovide, ...), one name per line. Grounded on
// original_source/src/rc-depend/rc-depend.c, which is likewise a thin
// loop over rc_deptree_depend printing one name per line; this is the
// SPEC_FULL.md-supplemented introspection verb set spec 4.4 lists
// ("ineed, iuse, iwant, needsme, usesme, wantsme, iafter, ibefore,
// iprovide") as delegating straight to C2.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openrc-go/internal/appenv"
	"openrc-go/pkg/depgraph"
)

var systemRoot string

func main() {
	root := &cobra.Command{
		Use:   "rc-depend <service> [kind]",
		Short: "Print a service's resolved start order or one kind's raw edge list",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := args[0]
			if len(args) == 2 {
				return printKind(svc, args[1])
			}
			return printOrder(svc)
		},
	}
	root.PersistentFlags().StringVar(&systemRoot, "root", "/", "system root (for testing under an alternate tree)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rc-depend:", err)
		os.Exit(1)
	}
}

func loadEnvAndGraph() (*appenv.Env, *depgraph.Graph, error) {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return nil, nil, err
	}
	graph, err := env.LoadGraph()
	if err != nil {
		return nil, nil, fmt.Errorf("load deptree cache: %w", err)
	}
	return env, graph, nil
}

func printOrder(svc string) error {
	env, graph, err := loadEnvAndGraph()
	if err != nil {
		return err
	}
	runlevel := os.Getenv("RC_RUNLEVEL")
	plan := depgraph.Order(graph, []string{svc}, depgraph.OpStart, runlevel, "", env.StatusLookup(runlevel))
	for _, name := range plan {
		fmt.Println(name)
	}
	return nil
}

func printKind(svc, kindName string) error {
	_, graph, err := loadEnvAndGraph()
	if err != nil {
		return err
	}
	kind, ok := depgraph.ParseKind(kindName)
	if !ok {
		return fmt.Errorf("unknown dependency kind %q", kindName)
	}
	node := graph.Node(svc)
	for _, name := range node.Edges[kind].Slice() {
		fmt.Println(name)
	}
	return nil
}
