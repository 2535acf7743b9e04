// Command rc-service is the per-service verb dispatcher: given a service
// name and one or more verbs, it resolves the service, builds a
// runscript.Driver, and invokes each verb in turn. This is the direct
// entry point spec section 2 calls "an external CLI selects a verb on a
// service name (C4)"; detailed flag/usage text is out of scope (spec
// section 1), so only the environment-variable contract of spec section 6
// and the positional service/verb arguments are handled here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openrc-go/internal/appenv"
	"openrc-go/internal/rclog"
	"openrc-go/pkg/depgraph"
	"openrc-go/pkg/runscript"
	"openrc-go/pkg/svcstate"
)

var systemRoot string

func main() {
	root := &cobra.Command{
		Use:   "rc-service <service> <verb...>",
		Short: "Drive a single service through one or more verbs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(args[0], args[1:])
		},
	}
	root.PersistentFlags().StringVar(&systemRoot, "root", "/", "system root (for testing under an alternate tree)")

	if err := root.Execute(); err != nil {
		rclog.Eerror("%v", err)
		os.Exit(1)
	}
}

func dispatch(svc string, verbs []string) error {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return err
	}

	graph, err := env.LoadGraph()
	if err != nil {
		graph = depgraph.NewGraph()
		graph.Node(svc)
	}

	path, err := env.Layout.Resolve(svc)
	if err != nil {
		return err
	}

	runlevel := os.Getenv("RC_RUNLEVEL")
	inHotplug := envTruthy("IN_HOTPLUG")
	if !runscript.PlugAllowed(svc, inHotplug, env.Config.HotplugAllow) {
		return fmt.Errorf("rc-service: %s is not allowed to hotplug-start", svc)
	}

	driver := &runscript.Driver{
		Layout:    env.Layout,
		Graph:     graph,
		Status:    env.StatusLookup(runlevel),
		Scheduler: env.Scheduler,
		Runlevel:  runlevel,
		Parallel:  env.Config.RCParallel,
		Body:      env.VerbBody(graph, runlevel, os.Getpid(), env.Config.RCParallel, nil),
		WaitFor: func(ctx context.Context, svc string, primary ...svcstate.Primary) error {
			return runscript.WaitForState(env.Layout, ctx, svc, primary...)
		},
	}

	ctx := context.Background()
	inBackground := envTruthy("IN_BACKGROUND")
	for _, verb := range verbs {
		if err := runVerb(ctx, driver, svc, path, verb, inBackground); err != nil {
			return err
		}
	}
	return nil
}

// runVerb dispatches a single verb to the Driver's start/stop/restart/zap
// transition methods; a dependency-kind verb (ineed, iuse, needsme, ...)
// prints that kind's edge list from pkg/depgraph one name per line, and
// any other verb (status, describe, depend, ...) delegates straight to the
// verb body, per spec 4.4's "Per verb" table.
func runVerb(ctx context.Context, d *runscript.Driver, svc, path, verb string, inBackground bool) error {
	switch verb {
	case "start":
		return d.Start(ctx, svc, path)
	case "stop":
		return d.Stop(ctx, svc, path, inBackground, false)
	case "restart":
		return d.Restart(ctx, svc, path)
	case "zap":
		return d.Zap(svc)
	default:
		if kind, ok := depgraph.ParseKind(verb); ok {
			for _, name := range d.Graph.Node(svc).Edges[kind].Slice() {
				fmt.Println(name)
			}
			return nil
		}
		_, err := d.Body(svc, path, verb)
		return err
	}
}

func envTruthy(name string) bool {
	switch os.Getenv(name) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}
