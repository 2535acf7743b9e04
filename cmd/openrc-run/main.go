// Command openrc-run drives a runlevel transition: it asks pkg/depgraph
// for an ordered plan over the cached dependency graph and walks it
// through pkg/runscript's Driver, one service at a time (sequential) or
// with use-deps fanned out in parallel when rc_parallel is set. It is the
// runlevel-transition entrypoint invoked directly or by cmd/openrc-init
// (PID 1); the per-service verb dispatcher is the separate cmd/rc-service
// binary. Grounded on the teacher's cmd/orchestrator/services.go
// EnsureService/StopService loop, which walks a resolved dependency order
// the same way; detailed per-applet flag parsing and help text are out of
// spec scope (spec section 1), so this wrapper only recognizes the
// runlevel name and a --root override.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openrc-go/internal/appenv"
	"openrc-go/internal/rclog"
)

var systemRoot string

func main() {
	root := &cobra.Command{
		Use:   "openrc-run [runlevel]",
		Short: "Transition to a runlevel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLevel(args[0])
		},
	}
	root.PersistentFlags().StringVar(&systemRoot, "root", "/", "system root (for testing under an alternate tree)")

	if err := root.Execute(); err != nil {
		rclog.Eerror("%v", err)
		os.Exit(1)
	}
}

func runLevel(runlevel string) error {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return err
	}

	graph, err := env.LoadGraph()
	if err != nil {
		return fmt.Errorf("openrc-run: load deptree cache (run the dependency harness first): %w", err)
	}

	if err := env.Transition(context.Background(), graph, runlevel); err != nil {
		return err
	}
	return env.SetSoftlevel(runlevel)
}
