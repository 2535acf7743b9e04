package svcstate

import (
	"fmt"

	"openrc-go/pkg/rcpath"
)

// Primary is one of the mutually exclusive primary states a service
// occupies; Modifier bits (wasinactive, failed, hotplugged) may additionally
// be set alongside whichever Primary applies, per spec section 3.
type Primary string

const (
	Stopped  Primary = "stopped"
	Starting Primary = "starting"
	Started  Primary = "started"
	Stopping Primary = "stopping"
	Inactive Primary = "inactive"
)

// Status is the full state snapshot for one service: its primary state plus
// whichever modifier bits are currently set.
type Status struct {
	Primary     Primary
	Scheduled   bool
	Crashed     bool
	WasInactive bool
	Failed      bool
	Hotplugged  bool
}

// Machine drives legal transitions for one service against a Layout,
// translating each move into the symlink membership calls C1 exposes.
// It does not itself take the exclusive lock; callers use ServiceLock
// around a transition sequence.
type Machine struct {
	layout *rcpath.Layout
	svc    string
}

// NewMachine builds a Machine for svc against layout.
func NewMachine(layout *rcpath.Layout, svc string) *Machine {
	return &Machine{layout: layout, svc: svc}
}

// Get reads the current Status by scanning C1's state directories.
func (m *Machine) Get() (Status, error) {
	set, err := m.layout.StateGet(m.svc)
	if err != nil {
		return Status{}, err
	}
	st := Status{Primary: Stopped}
	switch {
	case set["starting"]:
		st.Primary = Starting
	case set["started"]:
		st.Primary = Started
	case set["stopping"]:
		st.Primary = Stopping
	case set["inactive"]:
		st.Primary = Inactive
	}
	st.WasInactive = set["wasinactive"]
	st.Failed = set["failed"]
	st.Hotplugged = set["hotplugged"]
	return st, nil
}

// primaryStates lists the mutually exclusive state directories clearing a
// primary transition must wipe before marking the new one.
var primaryStates = []string{"starting", "started", "stopping", "inactive"}

func (m *Machine) setPrimary(p Primary, resolvedPath string) error {
	for _, s := range primaryStates {
		if err := m.layout.StateUnmark(m.svc, s); err != nil {
			return err
		}
	}
	if p == Stopped {
		return nil
	}
	return m.layout.StateMark(m.svc, string(p), resolvedPath)
}

// BeginStart transitions stopped/inactive -> starting. Per spec 4.3, leaving
// inactive sets the wasinactive modifier so a later crash-recovery pass
// knows to restore inactive rather than stopped on failure.
func (m *Machine) BeginStart(resolvedPath string) error {
	cur, err := m.Get()
	if err != nil {
		return err
	}
	if cur.Primary == Inactive {
		if err := m.layout.StateMark(m.svc, "wasinactive", resolvedPath); err != nil {
			return err
		}
	}
	return m.setPrimary(Starting, resolvedPath)
}

// FinishStart transitions starting -> started on success.
func (m *Machine) FinishStart(resolvedPath string) error {
	if err := m.layout.StateUnmark(m.svc, "failed"); err != nil {
		return err
	}
	return m.setPrimary(Started, resolvedPath)
}

// AbortStart restores the state a failed start should fall back to: inactive
// if wasinactive was set on entry, otherwise stopped; marks failed either way.
func (m *Machine) AbortStart(resolvedPath string) error {
	cur, err := m.Get()
	if err != nil {
		return err
	}
	if err := m.layout.StateMark(m.svc, "failed", resolvedPath); err != nil {
		return err
	}
	if cur.WasInactive {
		if err := m.layout.StateUnmark(m.svc, "wasinactive"); err != nil {
			return err
		}
		return m.setPrimary(Inactive, resolvedPath)
	}
	return m.setPrimary(Stopped, "")
}

// BeginStop transitions started -> stopping.
func (m *Machine) BeginStop(resolvedPath string) error {
	return m.setPrimary(Stopping, resolvedPath)
}

// FinishStop transitions stopping -> stopped, clearing hotplugged since a
// deliberately stopped service is no longer considered hotplug-managed.
func (m *Machine) FinishStop() error {
	if err := m.layout.StateUnmark(m.svc, "hotplugged"); err != nil {
		return err
	}
	return m.setPrimary(Stopped, "")
}

// GoInactive transitions stopping -> inactive, used by services whose stop
// verb intentionally leaves supporting state up (spec 3's inactive state).
func (m *Machine) GoInactive(resolvedPath string) error {
	return m.setPrimary(Inactive, resolvedPath)
}

// MarkHotplugged records that svc was brought up by hotplug rather than a
// runlevel, informing provider tie-breaking in pkg/depgraph.
func (m *Machine) MarkHotplugged(resolvedPath string) error {
	return m.layout.StateMark(m.svc, "hotplugged", resolvedPath)
}

// MarkFailed sets the failed bit without otherwise touching primary state,
// used when a stop proceeds past a still-up dependent during a stopping
// runlevel (spec 4.3/4.4: the service that could not be safely stopped is
// marked failed rather than forced down).
func (m *Machine) MarkFailed(resolvedPath string) error {
	return m.layout.StateMark(m.svc, "failed", resolvedPath)
}

// Reset clears every state bit, primary and modifier alike (including
// hotplugged); runscript.Driver.Zap uses it for the zap verb.
func (m *Machine) Reset() error {
	if err := m.layout.StateUnmarkAll(m.svc); err != nil {
		return err
	}
	return nil
}

func (p Primary) String() string {
	if p == "" {
		return "unknown"
	}
	return string(p)
}

// ErrIllegalTransition reports an attempted move the state machine refuses.
type ErrIllegalTransition struct {
	Service string
	From    Primary
	To      Primary
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("svcstate: %s: illegal transition %s -> %s", e.Service, e.From, e.To)
}
