// Command supervise-daemon is C5's process entry point: given a service
// name, it loads that service's daemon Descriptor from the option-value
// store and runs a Supervisor until the control FIFO's "stop" command
// arrives or the respawn budget is exhausted. Grounded on
// original_source/src/supervise-daemon/supervise.c's main(), which is
// likewise a thin argv-to-struct shim around the supervise() loop;
// detailed flag parsing is out of spec scope (spec section 1), so
// descriptor fields come from the option store pkg/rcpath already
// maintains rather than from command-line flags.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openrc-go/internal/appenv"
	"openrc-go/internal/rclog"
	"openrc-go/internal/rcerrors"
	"openrc-go/pkg/runscript"
	"openrc-go/pkg/supervise"
)

var systemRoot string

func main() {
	root := &cobra.Command{
		Use:   "supervise-daemon <service>",
		Short: "Supervise one service's long-lived daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(args[0])
		},
	}
	root.PersistentFlags().StringVar(&systemRoot, "root", "/", "system root (for testing under an alternate tree)")

	if err := root.Execute(); err != nil {
		rclog.Eerror("%v", err)
		var svErr *rcerrors.SupervisorError
		if errors.As(err, &svErr) {
			// Spec 7: a supervisor error still exits 0; the service is
			// simply not respawned further.
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func runSupervisor(svc string) error {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return err
	}

	desc, err := supervise.LoadDescriptor(env.Layout, svc)
	if err != nil {
		return fmt.Errorf("supervise-daemon: %s: %w", svc, err)
	}

	resolvedPath, err := env.Layout.Resolve(svc)
	if err != nil {
		return err
	}

	runVerb := func(verb string) (int, error) {
		res, err := runscript.Run(runscript.ExecRequest{
			Path:      resolvedPath,
			Verb:      verb,
			Env:       os.Environ(),
			Dir:       "/",
			NoTimeout: true,
		})
		return res.ExitCode, err
	}

	sup := supervise.NewSupervisor(env.Layout, desc, runVerb)
	err = sup.Run()
	if err != nil {
		var svErr *rcerrors.SupervisorError
		if errors.As(err, &svErr) {
			if markErr := svcMarkCrashed(env, svc); markErr != nil {
				rclog.Ewarn("%s: %v", svc, markErr)
			}
		}
	}
	return err
}

func svcMarkCrashed(env *appenv.Env, svc string) error {
	return env.Layout.ValueSet(svc, "crashed", "yes")
}
