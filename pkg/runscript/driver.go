package runscript

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"openrc-go/internal/rcerrors"
	"openrc-go/internal/rclog"
	"openrc-go/pkg/depgraph"
	"openrc-go/pkg/rcpath"
	"openrc-go/pkg/svcstate"
)

// VerbBody execs the resolved verb body and reports its result; production
// callers back this with Run, tests stub it.
type VerbBody func(svc, resolvedPath, verb string) (Result, error)

// Driver coordinates one service's verb invocation against the dependency
// graph and state machine, grounded on openrc-run.c's svc_start/svc_stop
// and the teacher's EnsureService/StopService wave logic in
// cmd/orchestrator/services.go.
type Driver struct {
	Layout    *rcpath.Layout
	Graph     *depgraph.Graph
	Status    depgraph.StatusLookup
	Scheduler *svcstate.Scheduler
	Runlevel  string
	Parallel  bool // rc_parallel: start use-deps concurrently
	Body      VerbBody
	WaitFor   func(ctx context.Context, svc string, primary ...svcstate.Primary) error
}

func (d *Driver) machine(svc string) *svcstate.Machine {
	return svcstate.NewMachine(d.Layout, svc)
}

// Start implements spec 4.4's start verb.
func (d *Driver) Start(ctx context.Context, svc, resolvedPath string) error {
	m := d.machine(svc)
	st, err := m.Get()
	if err != nil {
		return err
	}
	if st.Primary == svcstate.Started {
		return nil
	}

	node := d.Graph.Node(svc)
	if node.Broken.Len() > 0 {
		return &rcerrors.DependencyError{Service: svc, Err: fmt.Errorf("broken needs: %v", node.Broken.Slice())}
	}

	if err := m.BeginStart(resolvedPath); err != nil {
		return err
	}

	op := depgraph.OpStart
	plan := depgraph.Order(d.Graph, []string{svc}, op, d.Runlevel, svc, d.Status)

	useDeps := node.Edges[depgraph.KindUse].Slice()
	if err := d.startUseDeps(ctx, useDeps); err != nil {
		if abortErr := m.AbortStart(resolvedPath); abortErr != nil {
			return abortErr
		}
		return err
	}

	if deferred, err := d.waitOrDefer(ctx, svc, plan); err != nil {
		if abortErr := m.AbortStart(resolvedPath); abortErr != nil {
			return abortErr
		}
		return err
	} else if deferred {
		return m.AbortStart(resolvedPath)
	}

	res, err := d.Body(svc, resolvedPath, "start")
	if err != nil || res.ExitCode != 0 {
		if abortErr := m.AbortStart(resolvedPath); abortErr != nil {
			return abortErr
		}
		return &rcerrors.TransientRuntimeError{Service: svc, InRunlevelTransition: true, Err: err}
	}

	cur, err := m.Get()
	if err != nil {
		return err
	}
	if cur.Primary != svcstate.Inactive {
		if err := m.FinishStart(resolvedPath); err != nil {
			return err
		}
	}

	return d.runScheduled(ctx, svc)
}

// startUseDeps starts every use-dependency, in parallel via errgroup when
// Parallel is set, sequentially otherwise, per spec 4.4.
func (d *Driver) startUseDeps(ctx context.Context, deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	if !d.Parallel {
		for _, dep := range deps {
			if err := d.startDependency(ctx, dep); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range deps {
		dep := dep
		g.Go(func() error { return d.startDependency(gctx, dep) })
	}
	return g.Wait()
}

func (d *Driver) startDependency(ctx context.Context, dep string) error {
	path, err := d.Layout.Resolve(dep)
	if err != nil {
		// A use-dependency that does not resolve is not fatal; only need
		// deps must exist, per spec 3's edge-kind table.
		return nil
	}
	return d.Start(ctx, dep, path)
}

// waitOrDefer waits for every need/want/use/after dependency in plan to
// leave a pending state. If any need dependency is inactive, it registers a
// scheduled-start, prints a "will start when <dep> has started" warning and
// reports deferred=true so the caller aborts the start instead of
// proceeding to the body.
func (d *Driver) waitOrDefer(ctx context.Context, svc string, plan []string) (deferred bool, err error) {
	node := d.Graph.Node(svc)
	needs := node.Edges[depgraph.KindNeed].Slice()

	for _, dep := range needs {
		if d.Status == nil {
			continue
		}
		cand := d.Status(dep)
		if cand.State == "inactive" {
			path, rerr := d.Layout.Resolve(svc)
			if rerr == nil {
				d.Scheduler.Schedule(dep, svc, path)
			}
			rclog.Ewarn("%s will start when %s has started", svc, dep)
			return true, nil
		}
	}

	if d.WaitFor == nil {
		return false, nil
	}
	for _, dep := range plan {
		if err := d.WaitFor(ctx, dep,
			svcstate.Started, svcstate.Stopped, svcstate.Inactive); err != nil {
			return false, &rcerrors.TransientRuntimeError{Service: svc, Err: err}
		}
	}
	return false, nil
}

// runScheduled starts every service scheduled against svc (and against
// every name svc provides), per spec 4.4's final start step.
func (d *Driver) runScheduled(ctx context.Context, svc string) error {
	names := []string{svc}
	for _, provided := range d.Graph.Node(svc).Edges[depgraph.KindProvide].Slice() {
		names = append(names, provided)
	}
	for _, parent := range names {
		pending, err := d.Scheduler.Pending(parent)
		if err != nil {
			return err
		}
		for _, target := range pending {
			path, err := d.Layout.Resolve(target)
			if err != nil {
				continue
			}
			if err := d.Start(ctx, target, path); err != nil {
				continue
			}
		}
		if len(pending) > 0 {
			if err := d.Scheduler.Clear(parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop implements spec 4.4's stop verb: symmetric to Start, reversed.
func (d *Driver) Stop(ctx context.Context, svc, resolvedPath string, inBackground, runlevelStopping bool) error {
	m := d.machine(svc)
	st, err := m.Get()
	if err != nil {
		return err
	}
	if st.Primary == svcstate.Stopped && !st.Failed {
		return nil
	}
	if st.Failed && !runlevelStopping {
		return &rcerrors.DependencyError{Service: svc, Err: fmt.Errorf("service is failed")}
	}

	if err := d.stopDependents(ctx, svc, resolvedPath, runlevelStopping); err != nil {
		return err
	}

	if err := m.BeginStop(resolvedPath); err != nil {
		return err
	}

	res, err := d.Body(svc, resolvedPath, "stop")
	if err != nil || res.ExitCode != 0 {
		return &rcerrors.TransientRuntimeError{Service: svc, InRunlevelTransition: true, Err: err}
	}

	if inBackground {
		return m.GoInactive(resolvedPath)
	}
	return m.FinishStop()
}

// stopDependents stops every service that needs/wants/uses svc before svc
// itself stops. If a dependent cannot be stopped it refuses, unless the
// runlevel is stopping, in which case the stop proceeds anyway but svc is
// marked failed (spec 4.3/4.4: a service stopped out from under a still-up
// dependent is not a clean stop).
func (d *Driver) stopDependents(ctx context.Context, svc, resolvedPath string, runlevelStopping bool) error {
	node := d.Graph.Node(svc)
	var dependents []string
	dependents = append(dependents, node.Edges[depgraph.KindNeedsMe].Slice()...)
	dependents = append(dependents, node.Edges[depgraph.KindWantsMe].Slice()...)
	dependents = append(dependents, node.Edges[depgraph.KindUsesMe].Slice()...)

	for _, dep := range dependents {
		depSt, err := d.machine(dep).Get()
		if err != nil {
			return err
		}
		if depSt.Primary == svcstate.Stopped {
			continue
		}
		if depPath, rerr := d.Layout.Resolve(dep); rerr == nil {
			if serr := d.Stop(ctx, dep, depPath, false, runlevelStopping); serr == nil {
				continue
			}
		}
		if !runlevelStopping {
			return &rcerrors.DependencyError{Service: svc, Err: fmt.Errorf("%s is still up", dep)}
		}
		if err := d.machine(svc).MarkFailed(resolvedPath); err != nil {
			return err
		}
	}
	return nil
}

// Restart implements spec 4.4's restart verb: snapshot started+inactive
// peers, stop self, start self, then start every snapshotted peer whose
// state is now stopped.
func (d *Driver) Restart(ctx context.Context, svc, resolvedPath string) error {
	var snapshot []string
	for _, name := range d.Graph.Names() {
		st, err := d.machine(name).Get()
		if err != nil {
			continue
		}
		if st.Primary == svcstate.Started || st.Primary == svcstate.Inactive {
			snapshot = append(snapshot, name)
		}
	}

	if err := d.Stop(ctx, svc, resolvedPath, false, false); err != nil {
		return err
	}
	if err := d.Start(ctx, svc, resolvedPath); err != nil {
		return err
	}

	for _, name := range snapshot {
		st, err := d.machine(name).Get()
		if err != nil || st.Primary != svcstate.Stopped {
			continue
		}
		path, err := d.Layout.Resolve(name)
		if err != nil {
			continue
		}
		if err := d.Start(ctx, name, path); err != nil {
			return err
		}
	}
	return nil
}

// Zap implements spec 4.4's zap verb: force-reset to stopped without
// invoking any verb body.
func (d *Driver) Zap(svc string) error {
	m := d.machine(svc)
	if err := m.Reset(); err != nil {
		return err
	}
	return nil
}
