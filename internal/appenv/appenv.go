// Package appenv wires C1-C5 into the shared runtime context every cmd/
// binary needs: the resolved Layout, the loaded manager Config, and the
// StatusLookup/VerbBody closures the dependency engine and runscript
// driver take as collaborators. Grounded on the teacher's cmd/context.go
// CLIContext (a small struct of resolved globals built once and threaded
// through command handlers), generalized from CLI flags to init-system
// paths.
package appenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"openrc-go/internal/rclog"
	"openrc-go/internal/rcconfig"
	"openrc-go/pkg/depgraph"
	"openrc-go/pkg/rcpath"
	"openrc-go/pkg/runscript"
	"openrc-go/pkg/svcstate"
)

// Env is the resolved runtime context shared by cmd/openrc-run,
// cmd/rc-service, cmd/rc-status, cmd/rc-depend, cmd/supervise-daemon,
// and cmd/openrc-init.
type Env struct {
	Layout        *rcpath.Layout
	Config        *rcconfig.Config
	RunlevelsRoot string
	Scheduler     *svcstate.Scheduler
}

// Load resolves a Layout rooted at stateDir/systemRoot and loads the
// manager config from the conventional config directory, falling back to
// rcconfig.Default() when none is present.
func Load(stateDir, systemRoot, configDir string) (*Env, error) {
	cfg, err := rcconfig.Load(configDir)
	if err != nil {
		return nil, err
	}

	userInitDir := ""
	if cfg.UserMode {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			userInitDir = filepath.Join(xdg, "openrc-go", "init.d")
		} else if home := os.Getenv("HOME"); home != "" {
			userInitDir = filepath.Join(home, ".config", "openrc-go", "init.d")
		}
	}

	layout := rcpath.NewLayout(stateDir, systemRoot, cfg.UserMode, userInitDir)
	return &Env{
		Layout:        layout,
		Config:        cfg,
		RunlevelsRoot: filepath.Join(systemRoot, "etc", "runlevels"),
		Scheduler:     svcstate.NewScheduler(stateDir),
	}, nil
}

// DefaultStateDir is the conventional base service directory (spec
// section 6), under systemRoot so tests and --root overrides stay
// self-contained.
func DefaultStateDir(systemRoot string) string {
	return filepath.Join(systemRoot, "run", "openrc-go")
}

// StatusLookup builds a depgraph.StatusLookup backed by svcstate for
// provider selection during Order (spec 4.2), scoped to one runlevel for
// the InRunlevel/InBoot membership checks.
func (e *Env) StatusLookup(runlevel string) depgraph.StatusLookup {
	return func(name string) depgraph.Candidate {
		st, err := svcstate.NewMachine(e.Layout, name).Get()
		if err != nil {
			return depgraph.Candidate{Name: name, State: "stopped"}
		}
		return depgraph.Candidate{
			Name:       name,
			State:      string(st.Primary),
			InRunlevel: e.Layout.InRunlevel(e.RunlevelsRoot, runlevel, name),
			InBoot:     e.Layout.InRunlevel(e.RunlevelsRoot, "boot", name),
			Hotplugged: st.Hotplugged,
		}
	}
}

// VerbBody builds the production runscript.VerbBody: it invokes the
// resolved service script under runscript.Run with a filtered environment
// built by Environment.Build, serializing output through prefix when
// parallel is set (prefix may be nil when not).
func (e *Env) VerbBody(graph *depgraph.Graph, runlevel string, openrcPID int, parallel bool, prefix *runscript.PrefixWriter) runscript.VerbBody {
	return func(svc, resolvedPath, verb string) (runscript.Result, error) {
		env := runscript.Environment{
			SvcName:     svc,
			OpenRCPID:   openrcPID,
			Runlevel:    runlevel,
			Path:        os.Getenv("PATH"),
			UserMode:    e.Config.UserMode,
			ProfileEnv:  filepath.Join(e.Layout.StateDir, "profile.env"),
			OverrideVar: "rc_env_allow",
		}
		dir := "/"
		if e.Config.UserMode {
			if home := os.Getenv("HOME"); home != "" {
				dir = home
			}
		}
		node := graph.Node(svc)
		noTimeout := node.Keyword.Contains("-timeout") || node.Keyword.Contains("notimeout")
		return runscript.Run(runscript.ExecRequest{
			Path:      resolvedPath,
			Verb:      verb,
			Env:       env.Build(),
			Dir:       dir,
			UsePTY:    parallel,
			NoTimeout: noTimeout,
			Prefix:    prefix,
		})
	}
}

// Transition walks every service in runlevel through the appropriate
// verb: start for a normal runlevel, stop (in reverse plan order) for
// shutdown/reboot/single, per spec 4.2's Order operation selection.
// Shared by cmd/openrc-run (direct invocation) and cmd/openrc-init (PID
// 1's repeated driver, spec section 2's "PID 1 ... drives runlevel
// transitions by invoking C4 repeatedly over the plan C2 produces").
func (e *Env) Transition(ctx context.Context, graph *depgraph.Graph, runlevel string) error {
	stopping := runlevel == "shutdown" || runlevel == "reboot" || runlevel == "single"
	op := depgraph.OpStart
	if stopping {
		op = depgraph.OpStop
	}

	members, err := e.Layout.ListRunlevel(e.RunlevelsRoot, runlevel)
	if err != nil {
		return err
	}

	status := e.StatusLookup(runlevel)
	plan := depgraph.Order(graph, members, op, runlevel, "", status)

	driver := &runscript.Driver{
		Layout:    e.Layout,
		Graph:     graph,
		Status:    status,
		Scheduler: e.Scheduler,
		Runlevel:  runlevel,
		Parallel:  e.Config.RCParallel,
		Body:      e.VerbBody(graph, runlevel, os.Getpid(), e.Config.RCParallel, nil),
		WaitFor: func(ctx context.Context, svc string, primary ...svcstate.Primary) error {
			return runscript.WaitForState(e.Layout, ctx, svc, primary...)
		},
	}

	if stopping {
		for i := len(plan) - 1; i >= 0; i-- {
			svc := plan[i]
			path, err := e.Layout.Resolve(svc)
			if err != nil {
				continue
			}
			rclog.Einfo("stopping %s", svc)
			if err := driver.Stop(ctx, svc, path, false, true); err != nil {
				rclog.Ewarn("%s: %v", svc, err)
			}
		}
		return nil
	}

	for _, svc := range plan {
		path, err := e.Layout.Resolve(svc)
		if err != nil {
			rclog.Ewarn("%s: %v", svc, err)
			continue
		}
		rclog.Einfo("starting %s", svc)
		if err := driver.Start(ctx, svc, path); err != nil {
			rclog.Ewarn("%s: %v", svc, err)
		}
	}
	return nil
}

// SetSoftlevel records runlevel as the currently active level in the
// softlevel file (spec 6's on-disk layout). openrc-run and openrc-init
// write it; no command in this repository reads it back.
func (e *Env) SetSoftlevel(runlevel string) error {
	return os.WriteFile(filepath.Join(e.Layout.StateDir, "softlevel"), []byte(runlevel+"\n"), 0o644)
}

// Softlevel reads the current softlevel file, returning "" if absent.
func (e *Env) Softlevel() string {
	data, err := os.ReadFile(filepath.Join(e.Layout.StateDir, "softlevel"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LoadGraph reads the cached dependency graph (spec 6's deptree format)
// from stateDir/deptree. Rebuilding a stale cache requires the external
// shell harness that introspects each service's depend() function (spec
// 4.2's parsing contract), which lives outside the core and is not a
// cmd/ concern; callers needing a fresh cache regenerate it out of band
// and this just reads whatever is on disk.
func (e *Env) LoadGraph() (*depgraph.Graph, error) {
	f, err := os.Open(filepath.Join(e.Layout.StateDir, "deptree"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return depgraph.ReadCache(f)
}
