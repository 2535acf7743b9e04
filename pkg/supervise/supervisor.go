package supervise

import (
	"os"
	"os/exec"
	"strconv"
	"time"

	"openrc-go/internal/rcerrors"
	"openrc-go/internal/rclog"
	"openrc-go/pkg/rcpath"
)

func daemonDir(stateDir, svc string) string {
	return stateDir + "/daemons/" + svc
}

// shutdownGrace is the 5s grace period both the health-check escalation
// and the stop command use before sending SIGKILL, per spec 4.5 and 5.
const shutdownGrace = 5 * time.Second

// Supervisor drives one daemon's full life cycle per spec 4.5: spawn,
// poll for control/child-exit/notify events, health-check, respawn under
// policy, and signalled shutdown. Grounded on supervise.c's supervise()
// main loop, adapted from Go channels/select instead of poll(2) on raw
// fds the way pkg/runscript.exec.go's verb-body loop already does.
type Supervisor struct {
	Layout  *rcpath.Layout
	Desc    *Descriptor
	RunVerb VerbRunner

	control  *ControlFIFO
	notifier *Notifier
	health   *HealthChecker
	respawn  *respawnWindow

	cmd *exec.Cmd
}

// NewSupervisor builds a Supervisor for desc, wiring the health checker to
// runVerb (a closure over pkg/runscript.Run in production).
func NewSupervisor(layout *rcpath.Layout, desc *Descriptor, runVerb VerbRunner) *Supervisor {
	return &Supervisor{
		Layout:  layout,
		Desc:    desc,
		RunVerb: runVerb,
		health:  newHealthChecker(runVerb),
		respawn: newRespawnWindow(desc.RespawnPeriod, desc.RespawnMax),
	}
}

// Run blocks until the daemon is stopped (via the control FIFO) or its
// respawn budget is exhausted, per spec 4.5/7 SupervisorError policy: a
// budget overrun returns a *rcerrors.SupervisorError and the caller marks
// the service crashed, but Run itself does not treat that as a process
// failure (supervisor exits 0 per spec 7).
func (s *Supervisor) Run() error {
	if err := rcpath.EnsureDir(daemonDir(s.Layout.StateDir, s.Desc.Service), 0o755); err != nil {
		return &rcerrors.SystemError{Syscall: "mkdir daemon dir", Err: err}
	}

	notify, err := ParseNotify(s.Desc.Notify)
	if err != nil {
		return err
	}
	s.notifier, err = NewNotifier(notify, s.Layout.StateDir, s.Desc.Service)
	if err != nil {
		return err
	}
	defer s.notifier.Close()

	s.control, err = OpenControlFIFO(fifoPath(s.Layout.StateDir, s.Desc.Service))
	if err != nil {
		return err
	}
	defer s.control.Close()

	if err := s.spawn(0); err != nil {
		return err
	}

	var healthTimer *time.Timer
	var healthC <-chan time.Time
	if s.Desc.HealthcheckTimer > 0 {
		delay := s.Desc.HealthcheckDelay
		if delay <= 0 {
			delay = s.Desc.HealthcheckTimer
		}
		healthTimer = time.NewTimer(delay)
		healthC = healthTimer.C
	}

	controlCh := make(chan Command, 1)
	controlErrCh := make(chan error, 1)
	go s.pumpControl(controlCh, controlErrCh)

	exitCh := make(chan error, 1)
	go func(cmd *exec.Cmd) { exitCh <- cmd.Wait() }(s.cmd)

	var socketReady <-chan bool
	if s.notifier.SocketConn() != nil {
		ch := make(chan bool, 1)
		go func() {
			ok, _ := s.notifier.CheckSocketReady()
			ch <- ok
		}()
		socketReady = ch
	}

	var pipeReady <-chan bool
	if f := s.notifier.ReadyFD(); f != nil {
		ch := make(chan bool, 1)
		go func() {
			buf := make([]byte, 64)
			n, err := f.Read(buf)
			ch <- err == nil && n > 0
		}()
		pipeReady = ch
	}

	for {
		select {
		case cmdWord := <-controlCh:
			if cmdWord.Stop {
				return s.shutdown()
			}
			if cmdWord.HasSig && s.cmd.Process != nil {
				_ = s.cmd.Process.Signal(cmdWord.Signal)
			}
			go s.pumpControl(controlCh, controlErrCh)

		case <-controlErrCh:
			// Control FIFO closed or errored; keep supervising the child,
			// matching supervise.c's tolerant poll loop (a read error on
			// one fd does not tear down the others).

		case <-socketReady:
			rclog.Debug("supervise %s: notify socket READY=1 observed", s.Desc.Service)
			_ = s.Layout.ValueSet(s.Desc.Service, "ready", "yes")
			socketReady = nil

		case <-pipeReady:
			rclog.Debug("supervise %s: notify pipe write observed", s.Desc.Service)
			_ = s.Layout.ValueSet(s.Desc.Service, "ready", "yes")
			pipeReady = nil

		case err := <-exitCh:
			_ = err
			if s.respawn.recordExit(time.Now()) {
				return &rcerrors.SupervisorError{Service: s.Desc.Service, Reason: "respawn budget exceeded"}
			}
			if s.Desc.RespawnDelay > 0 {
				time.Sleep(s.Desc.RespawnDelay)
			}
			if err := s.spawn(s.respawn.count); err != nil {
				return err
			}
			exitCh = make(chan error, 1)
			go func(cmd *exec.Cmd) { exitCh <- cmd.Wait() }(s.cmd)

		case <-healthC:
			if !s.health.check() {
				s.killChildAndWait()
				if s.respawn.recordExit(time.Now()) {
					return &rcerrors.SupervisorError{Service: s.Desc.Service, Reason: "health check failure"}
				}
				if err := s.spawn(s.respawn.count); err != nil {
					return err
				}
				exitCh = make(chan error, 1)
				go func(cmd *exec.Cmd) { exitCh <- cmd.Wait() }(s.cmd)
			}
			if healthTimer != nil {
				healthTimer.Reset(s.Desc.HealthcheckTimer)
			}
		}
	}
}

func (s *Supervisor) pumpControl(out chan<- Command, errOut chan<- error) {
	cmd, err := s.control.Read()
	if err != nil {
		errOut <- err
		return
	}
	out <- cmd
}

// spawn launches the child and records start_time/start_count as service
// values, per spec 4.5's spawn_child bookkeeping.
func (s *Supervisor) spawn(respawnCount int) error {
	cmd, err := spawnChild(s.Desc, s.notifier)
	if err != nil {
		return err
	}
	s.cmd = cmd

	now := time.Now().Format(time.RFC3339)
	_ = s.Layout.ValueSet(s.Desc.Service, "start_time", now)
	_ = s.Layout.ValueSet(s.Desc.Service, "start_count", strconv.Itoa(respawnCount))
	_ = s.Layout.ValueSet(s.Desc.Service, "child_pid", strconv.Itoa(cmd.Process.Pid))
	if s.notifier.Spec.Kind != NotifyNone {
		_ = s.Layout.ValueSet(s.Desc.Service, "ready", "no")
	}
	return nil
}

func (s *Supervisor) killChildAndWait() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() { _, _ = s.cmd.Process.Wait(); close(done) }()
	killAndWait(s.cmd.Process.Pid, shutdownGrace, done)
	<-done
}

// shutdown implements spec 4.5's "Shutdown" step and the C5 control
// protocol's "stop" command: SIGTERM the process group, 5s grace, SIGKILL,
// clear the service's recorded values, unlink the daemon record directory,
// return nil (the caller exits 0).
func (s *Supervisor) shutdown() error {
	s.killChildAndWait()
	_ = s.Layout.ValueClear(s.Desc.Service)
	_ = os.RemoveAll(daemonDir(s.Layout.StateDir, s.Desc.Service))
	return nil
}
