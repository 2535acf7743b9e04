// Command openrc-init is the PID 1 entrypoint: it drives the boot
// sequence (sysinit, boot, then the configured bootlevel/default) and
// then reads a fixed word set off a control FIFO for the rest of its
// life, per spec section 6's "PID-1 control FIFO... read a fixed word
// set from a FIFO: halt, kexec, poweroff, reboot, reexec, single.
// Unknown words are logged and ignored." Grounded on
// original_source/src/rc/rc.c's main(), which walks the same
// sysinit/boot/default sequence before waiting on its own FIFO; actually
// issuing reboot(2)/kexec or SysVinit compatibility is explicitly out of
// scope (spec section 1): single, reboot and shutdown drive a transition
// to the runlevel of that name, while halt, poweroff, kexec and reexec
// only log that the underlying action is not performed.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"openrc-go/internal/appenv"
	"openrc-go/internal/rclog"
	"openrc-go/internal/rcerrors"
)

var systemRoot = "/"

func main() {
	if len(os.Args) > 1 {
		systemRoot = os.Args[1]
	}

	if err := run(); err != nil {
		rclog.Eerror("%v", err)
		os.Exit(1)
	}
}

func run() error {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return err
	}

	ctx := context.Background()
	bootlevel := os.Getenv("RC_BOOTLEVEL")
	if bootlevel == "" {
		bootlevel = env.Config.DefaultRunlevel
	}
	if bootlevel == "" {
		bootlevel = "default"
	}

	for _, level := range []string{"sysinit", "boot", bootlevel} {
		graph, err := env.LoadGraph()
		if err != nil {
			rclog.Ewarn("openrc-init: %s: %v", level, err)
			continue
		}
		if err := env.Transition(ctx, graph, level); err != nil {
			rclog.Ewarn("openrc-init: %s: %v", level, err)
		}
		if err := env.SetSoftlevel(level); err != nil {
			rclog.Ewarn("openrc-init: record softlevel: %v", err)
		}
	}

	fifoPath := stateDir + "/openrc-init.control"
	fifo, err := openControlFIFO(fifoPath)
	if err != nil {
		return err
	}
	defer fifo.Close()

	rclog.Einfo("openrc-init: entering control loop on %s", fifoPath)
	for {
		word, err := fifo.Read()
		if err != nil {
			return fmt.Errorf("openrc-init: read control fifo: %w", err)
		}
		if word == "" {
			continue
		}
		handleWord(ctx, env, word)
	}
}

func handleWord(ctx context.Context, env *appenv.Env, word string) {
	switch word {
	case "single", "reboot", "shutdown":
		graph, err := env.LoadGraph()
		if err != nil {
			rclog.Ewarn("openrc-init: %s: %v", word, err)
			return
		}
		if err := env.Transition(ctx, graph, word); err != nil {
			rclog.Ewarn("openrc-init: %s: %v", word, err)
		}
		_ = env.SetSoftlevel(word)
	case "halt", "poweroff", "kexec":
		rclog.Einfo("openrc-init: %s requested; issuing the underlying syscall is out of scope here", word)
	case "reexec":
		rclog.Einfo("openrc-init: reexec requested; re-executing PID 1 is out of scope here")
	default:
		rclog.Ewarn("openrc-init: unknown control word %q ignored", word)
	}
}

// controlFIFO is a minimal fixed-word-set FIFO reader for PID 1, mirroring
// pkg/supervise.ControlFIFO's open/read shape but without that package's
// stop/signal grammar, since the init-level word set is the disjoint set
// named in spec section 6.
type controlFIFO struct {
	path string
	file *os.File
}

func openControlFIFO(path string) (*controlFIFO, error) {
	if err := syscall.Mkfifo(path, 0o600); err != nil && !os.IsExist(err) {
		return nil, &rcerrors.SystemError{Syscall: "mkfifo", Err: err}
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "open control fifo", Err: err}
	}
	return &controlFIFO{path: path, file: f}, nil
}

func (c *controlFIFO) Read() (string, error) {
	buf := make([]byte, 64)
	n, err := c.file.Read(buf)
	if err != nil {
		return "", err
	}
	word := string(buf[:n])
	for len(word) > 0 && (word[len(word)-1] == '\n' || word[len(word)-1] == '\r' || word[len(word)-1] == ' ') {
		word = word[:len(word)-1]
	}
	return word, nil
}

func (c *controlFIFO) Close() error {
	err := c.file.Close()
	_ = os.Remove(c.path)
	return err
}
