package runscript

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// WarnTimeout and WaitTimeout are the soft/hard verb-body timeouts from
// spec 4.4's exec protocol (openrc-run.c's WARN_TIMEOUT/WAIT_TIMEOUT).
const (
	WarnTimeout = 10 * time.Second
	WaitTimeout = 60 * time.Second
)

// ExecRequest describes one verb-body invocation.
type ExecRequest struct {
	Path      string // resolved service script
	Verb      string
	Env       []string
	Dir       string
	UsePTY    bool // set in parallel mode, when output must be prefixed
	NoTimeout bool // keyword -timeout/notimeout
	Prefix    *PrefixWriter
}

// Result reports how the verb body finished.
type Result struct {
	ExitCode  int
	TimedOut  bool
	Signalled bool
}

// Run spawns the verb body per spec 4.4: inherits stdio directly unless
// UsePTY is set, in which case it allocates a pty and pumps output through
// Prefix. A self-pipe style child-exit channel decouples SIGCHLD delivery
// from the blocking wait; SIGHUP/SIGUSR1/SIGWINCH/SIGINT/SIGTERM/SIGQUIT
// are handled per the documented policy while the body runs.
func Run(req ExecRequest) (Result, error) {
	if req.NoTimeout {
		return runWithTimeouts(req, 0, 0)
	}
	return runWithTimeouts(req, WarnTimeout, WaitTimeout)
}

func runWithTimeouts(req ExecRequest, warn, wait time.Duration) (Result, error) {
	cmd := exec.Command(req.Path, req.Verb)
	cmd.Env = req.Env
	cmd.Dir = req.Dir

	var master, slave *os.File
	var err error
	if req.UsePTY {
		master, slave, err = openPTY()
		if err != nil {
			return Result{}, fmt.Errorf("runscript: allocate pty: %w", err)
		}
		defer master.Close()
		cmd.Stdin = slave
		cmd.Stdout = slave
		cmd.Stderr = slave
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		if slave != nil {
			slave.Close()
		}
		return Result{}, fmt.Errorf("runscript: start %s %s: %w", req.Path, req.Verb, err)
	}
	if slave != nil {
		slave.Close()
	}

	if req.UsePTY && req.Prefix != nil {
		go req.Prefix.PumpLines(master)
	}

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGWINCH,
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var warnTimer, waitTimer <-chan time.Time
	if warn > 0 {
		t := time.NewTimer(warn)
		defer t.Stop()
		warnTimer = t.C
	}
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		waitTimer = t.C
	}

	var res Result
	for {
		select {
		case err := <-done:
			res.ExitCode = exitCode(err)
			return res, nil

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGWINCH:
				if req.UsePTY && master != nil {
					propagateWinsize(master)
				}
			case syscall.SIGHUP, syscall.SIGUSR1:
				// Reload/skip-mark flags are observed by the caller between
				// verbs; this layer only needs to avoid exiting on them.
			case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				if cmd.Process != nil {
					cmd.Process.Signal(sig)
				}
				res.Signalled = true
				<-done
				res.ExitCode = 1
				return res, nil
			}

		case <-warnTimer:
			warnTimer = nil
			if req.Prefix != nil {
				req.Prefix.writeLine(fmt.Sprintf("still waiting for %s to %s", req.Path, req.Verb))
			}

		case <-waitTimer:
			res.TimedOut = true
			if cmd.Process != nil {
				cmd.Process.Signal(syscall.SIGKILL)
			}
			<-done
			res.ExitCode = 1
			return res, nil
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// openPTY allocates a pty pair via /dev/ptmx, returning the master (kept
// open by the parent for line pumping) and slave (handed to the child and
// closed by the caller once the child has it open).
func openPTY() (master, slave *os.File, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.IoctlSetInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, nil, err
	}
	n, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	slavePath := "/dev/pts/" + strconv.Itoa(n)
	slave, err = os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	return master, slave, nil
}

func propagateWinsize(master *os.File) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return
	}
	ws := &unix.Winsize{Row: uint16(h), Col: uint16(w)}
	unix.IoctlSetWinsize(int(master.Fd()), unix.TIOCSWINSZ, ws)
}
