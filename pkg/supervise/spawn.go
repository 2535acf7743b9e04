package supervise

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"openrc-go/internal/rcerrors"
)

// spawnChild forks and execs the daemon per spec 4.5's spawn phase: umask,
// nicelevel, ionice, oom-score-adj, capabilities, secbits and no-new-privs
// are applied in daemon.c's child_process order by applyResourcePolicy;
// the Descriptor's scheduler and sched priority are not applied.
// chroot/chdir and setuid/setgid go through SysProcAttr (Go's exec.Cmd
// applies these between fork and exec in the child itself, the same place
// daemon.c's loop runs). It returns the running *exec.Cmd once fork
// succeeds; a failure inside the child before exec is returned by
// cmd.Start and wrapped as a SystemError.
func spawnChild(desc *Descriptor, notify *Notifier) (cmd *exec.Cmd, err error) {
	argv := desc.Argv
	if len(argv) == 0 {
		argv = []string{desc.Exec}
	}
	execPath := desc.Exec
	if execPath == "" {
		execPath = argv[0]
	}
	resolved, err := exec.LookPath(execPath)
	if err != nil {
		resolved = execPath
	}

	errPipeR, errPipeW, err := os.Pipe()
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "pipe", Err: err}
	}
	defer errPipeR.Close()
	unix.CloseOnExec(int(errPipeW.Fd()))

	uid, gid, groups, uerr := resolveUser(desc.User)
	if uerr != nil {
		errPipeW.Close()
		return nil, &rcerrors.ConfigError{Op: "resolve user", Err: uerr}
	}

	attr := &syscall.SysProcAttr{Setsid: true}
	if uid >= 0 {
		attr.Credential = &syscall.Credential{
			Uid:    uint32(uid),
			Gid:    uint32(gid),
			Groups: groups,
		}
	}

	env := buildChildEnv(desc)

	cmd = exec.Command(resolved, argv[1:]...)
	cmd.Args = argv
	cmd.Env = env
	if desc.Chroot != "" {
		attr.Chroot = desc.Chroot
	}
	cmd.SysProcAttr = attr
	if desc.Chdir != "" {
		// chdir is relative to chroot, per daemon.c's option ordering.
		cmd.Dir = desc.Chdir
	}

	stdinF, stdoutF, stderrF, rerr := openRedirections(desc)
	if rerr != nil {
		errPipeW.Close()
		return nil, rerr
	}
	if stdinF != nil {
		cmd.Stdin = stdinF
		defer stdinF.Close()
	}
	if stdoutF != nil {
		cmd.Stdout = stdoutF
		defer stdoutF.Close()
	}
	if stderrF != nil {
		cmd.Stderr = stderrF
		defer stderrF.Close()
	}

	if notify != nil {
		cmd.Env = append(cmd.Env, notify.Env()...)
		if f := notify.ChildExtraFile(); f != nil {
			// ExtraFiles start at fd 3; the notify fd lands at
			// 3+len(ExtraFiles)-1. Descriptor.Notify's "fd:N" names the fd
			// the child should see, so callers that want a specific N
			// should keep N in [3, 3+k).
			cmd.ExtraFiles = append(cmd.ExtraFiles, f)
		}
	}

	applyResourcePolicy(desc)

	if err := cmd.Start(); err != nil {
		errPipeW.Close()
		return nil, &rcerrors.SystemError{Syscall: "fork/exec", Err: err}
	}
	errPipeW.Close()

	return cmd, nil
}

// applyResourcePolicy sets this process's own umask/nicelevel/ionice/
// oom-score ahead of forking, since Go's exec.Cmd offers no child-side hook
// for per-syscall setup between fork and exec the way daemon.c's
// child_process loop does; the supervisor sets them on itself immediately
// before spawning so the child inherits them (umask, nicelevel,
// oom-score-adj and scheduling class are inherited across fork on Linux)
// and does not restore its own values afterward. capabilities/secbits/
// no-new-privs are likewise narrowed on the supervisor itself, since they
// only ever narrow and the common supervise-daemon invocation shape is one
// supervisor process per spawned daemon.
func applyResourcePolicy(desc *Descriptor) {
	if desc.Umask != "" {
		if mask, err := strconv.ParseUint(desc.Umask, 8, 32); err == nil {
			unix.Umask(int(mask))
		}
	}
	if desc.HasNicelevel {
		_ = unix.Setpriority(unix.PRIO_PROCESS, 0, desc.Nicelevel)
		writeAutogroup(desc.Nicelevel)
	}
	if desc.Ionice != "" {
		_ = setIonice(desc.Ionice)
	}
	if desc.HasOOMScore {
		_ = writeOOMScoreAdj(desc.OOMScoreAdj)
	}
	if desc.Capabilities != "" {
		_ = dropCapabilities(desc.Capabilities)
	}
	if desc.Secbits != "" {
		_ = setSecurebits(desc.Secbits)
	}
	if desc.NoNewPrivs {
		_ = unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
	}
}

// capByName resolves a CAP_* name (case-insensitive, cap_ prefix
// optional) to its numeric value, the subset of libcap's capability
// table the kernel headers vendored into golang.org/x/sys/unix expose.
func capByName(name string) (uintptr, bool) {
	name = strings.ToUpper(strings.TrimPrefix(strings.ToLower(name), "cap_"))
	caps := map[string]uintptr{
		"CHOWN": unix.CAP_CHOWN, "DAC_OVERRIDE": unix.CAP_DAC_OVERRIDE,
		"DAC_READ_SEARCH": unix.CAP_DAC_READ_SEARCH, "FOWNER": unix.CAP_FOWNER,
		"FSETID": unix.CAP_FSETID, "KILL": unix.CAP_KILL, "SETGID": unix.CAP_SETGID,
		"SETUID": unix.CAP_SETUID, "SETPCAP": unix.CAP_SETPCAP,
		"LINUX_IMMUTABLE": unix.CAP_LINUX_IMMUTABLE, "NET_BIND_SERVICE": unix.CAP_NET_BIND_SERVICE,
		"NET_BROADCAST": unix.CAP_NET_BROADCAST, "NET_ADMIN": unix.CAP_NET_ADMIN,
		"NET_RAW": unix.CAP_NET_RAW, "IPC_LOCK": unix.CAP_IPC_LOCK, "IPC_OWNER": unix.CAP_IPC_OWNER,
		"SYS_MODULE": unix.CAP_SYS_MODULE, "SYS_RAWIO": unix.CAP_SYS_RAWIO,
		"SYS_CHROOT": unix.CAP_SYS_CHROOT, "SYS_PTRACE": unix.CAP_SYS_PTRACE,
		"SYS_PACCT": unix.CAP_SYS_PACCT, "SYS_ADMIN": unix.CAP_SYS_ADMIN,
		"SYS_BOOT": unix.CAP_SYS_BOOT, "SYS_NICE": unix.CAP_SYS_NICE,
		"SYS_RESOURCE": unix.CAP_SYS_RESOURCE, "SYS_TIME": unix.CAP_SYS_TIME,
		"SYS_TTY_CONFIG": unix.CAP_SYS_TTY_CONFIG, "MKNOD": unix.CAP_MKNOD,
		"LEASE": unix.CAP_LEASE, "AUDIT_WRITE": unix.CAP_AUDIT_WRITE,
		"AUDIT_CONTROL": unix.CAP_AUDIT_CONTROL, "SETFCAP": unix.CAP_SETFCAP,
		"MAC_OVERRIDE": unix.CAP_MAC_OVERRIDE, "MAC_ADMIN": unix.CAP_MAC_ADMIN,
		"SYSLOG": unix.CAP_SYSLOG, "WAKE_ALARM": unix.CAP_WAKE_ALARM,
		"BLOCK_SUSPEND": unix.CAP_BLOCK_SUSPEND, "AUDIT_READ": unix.CAP_AUDIT_READ,
	}
	cap, ok := caps[name]
	return cap, ok
}

// dropCapabilities parses the "capabilities" option's libcap IAB-style
// list and drops capabilities from this process's bounding set via
// repeated PR_CAPBSET_DROP, per daemon.c's handling of --capabilities.
// A leading "^" means the list names the capabilities to KEEP (every
// other capability up to CAP_LAST_CAP is dropped); without it, the list
// names the capabilities to drop directly. Per-thread/effective/
// permitted capability sets (which would need a full libcap binding)
// are out of reach without cgo, so only the inheritable bounding-set
// narrowing is applied.
func dropCapabilities(spec string) error {
	keep := strings.HasPrefix(spec, "^")
	spec = strings.TrimPrefix(spec, "^")
	named := make(map[uintptr]bool)
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		cap, ok := capByName(tok)
		if !ok {
			return &rcerrors.ConfigError{Op: "parse capabilities", Err: fmt.Errorf("unknown capability %q", tok)}
		}
		named[cap] = true
	}

	var firstErr error
	for c := uintptr(0); c <= unix.CAP_LAST_CAP; c++ {
		drop := named[c]
		if keep {
			drop = !named[c]
		}
		if !drop {
			continue
		}
		if err := unix.Prctl(unix.PR_CAPBSET_DROP, c, 0, 0, 0); err != nil && firstErr == nil {
			firstErr = &rcerrors.SystemError{Syscall: "prctl(PR_CAPBSET_DROP)", Err: err}
		}
	}
	return firstErr
}

// secbitByName resolves the securebits.h names daemon.c accepts for
// --secbits to their bit position.
func secbitByName(name string) (uint, bool) {
	bits := map[string]uint{
		"noroot":                      0,
		"noroot_locked":               1,
		"no_setuid_fixup":             2,
		"no_setuid_fixup_locked":      3,
		"keep_caps":                   4,
		"keep_caps_locked":            5,
		"no_cap_ambient_raise":        6,
		"no_cap_ambient_raise_locked": 7,
	}
	bit, ok := bits[strings.ToLower(name)]
	return bit, ok
}

// setSecurebits parses a comma-separated list of securebits.h names (or a
// bare numeric mask) and applies it via PR_SET_SECUREBITS, per daemon.c's
// --secbits handling.
func setSecurebits(spec string) error {
	if n, err := strconv.ParseUint(spec, 0, 32); err == nil {
		return prSetSecurebits(uintptr(n))
	}
	var mask uintptr
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		bit, ok := secbitByName(tok)
		if !ok {
			return &rcerrors.ConfigError{Op: "parse secbits", Err: fmt.Errorf("unknown secbit %q", tok)}
		}
		mask |= 1 << bit
	}
	return prSetSecurebits(mask)
}

func prSetSecurebits(mask uintptr) error {
	if err := unix.Prctl(unix.PR_SET_SECUREBITS, mask, 0, 0, 0); err != nil {
		return &rcerrors.SystemError{Syscall: "prctl(PR_SET_SECUREBITS)", Err: err}
	}
	return nil
}

func writeAutogroup(nice int) {
	f, err := os.OpenFile("/proc/self/autogroup", os.O_WRONLY, 0)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d\n", nice)
}

func writeOOMScoreAdj(score int) error {
	return os.WriteFile("/proc/self/oom_score_adj", []byte(strconv.Itoa(score)+"\n"), 0o644)
}

// setIonice parses "class:data" and issues the ioprio_set syscall per
// daemon.c's set_ionice (class 0=none, 1=realtime, 2=best-effort,
// 3=idle; idle forces data to 7).
func setIonice(spec string) error {
	classStr, dataStr, ok := strings.Cut(spec, ":")
	class, err := strconv.Atoi(classStr)
	if err != nil {
		return &rcerrors.ConfigError{Op: "parse ionice class", Err: err}
	}
	data := 0
	if ok {
		data, _ = strconv.Atoi(dataStr)
	}
	if class == 3 {
		data = 7
	}
	const ioprioWhoProcess = 1
	prio := (class << 13) | data
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, uintptr(ioprioWhoProcess), 0, uintptr(prio))
	if errno != 0 {
		return &rcerrors.SystemError{Syscall: "ioprio_set", Err: errno}
	}
	return nil
}

// resolveUser parses "user[:group]" into numeric uid/gid plus the user's
// supplementary groups (initgroups-equivalent), per daemon.c's set_user.
func resolveUser(spec string) (uid, gid int, groups []uint32, err error) {
	if spec == "" {
		return -1, -1, nil, nil
	}
	userPart, groupPart, _ := strings.Cut(spec, ":")

	u, uerr := lookupUser(userPart)
	if uerr != nil {
		return 0, 0, nil, uerr
	}
	uid, _ = strconv.Atoi(u.Uid)
	gid, _ = strconv.Atoi(u.Gid)

	if groupPart != "" {
		g, gerr := user.LookupGroup(groupPart)
		if gerr != nil {
			if gid2, err2 := strconv.Atoi(groupPart); err2 == nil {
				gid = gid2
			} else {
				return 0, 0, nil, gerr
			}
		} else {
			gid, _ = strconv.Atoi(g.Gid)
		}
	}

	groupIDs, gerr := u.GroupIds()
	if gerr == nil {
		for _, gs := range groupIDs {
			if n, err := strconv.Atoi(gs); err == nil {
				groups = append(groups, uint32(n))
			}
		}
	}
	return uid, gid, groups, nil
}

func lookupUser(spec string) (*user.User, error) {
	if _, err := strconv.Atoi(spec); err == nil {
		return user.LookupId(spec)
	}
	return user.Lookup(spec)
}

// buildChildEnv mirrors supervise.c's "env" option (newline-separated
// KEY=VALUE pairs applied with putenv) layered on the supervisor's own
// environment.
func buildChildEnv(desc *Descriptor) []string {
	env := append([]string{}, os.Environ()...)
	for _, kv := range desc.Env {
		if kv == "" {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// openRedirections opens stdin/stdout/stderr per daemon.c's do_open:
// stdin is read-only, stdout/stderr are append-create, and
// stdout-logger/stderr-logger spawn a pipeline and hand the child the
// write end of a pipe into its stdin (see pipeToLogger below).
func openRedirections(desc *Descriptor) (stdin, stdout, stderr *os.File, err error) {
	if desc.Stdin != "" {
		stdin, err = os.Open(desc.Stdin)
		if err != nil {
			return nil, nil, nil, &rcerrors.SystemError{Syscall: "open stdin", Err: err}
		}
	}
	if desc.StdoutLogger != "" {
		stdout, err = pipeToLogger(desc.StdoutLogger)
	} else if desc.Stdout != "" {
		stdout, err = os.OpenFile(desc.Stdout, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	}
	if err != nil {
		return nil, nil, nil, &rcerrors.SystemError{Syscall: "open stdout", Err: err}
	}
	if desc.StderrLogger != "" {
		stderr, err = pipeToLogger(desc.StderrLogger)
	} else if desc.Stderr != "" {
		stderr, err = os.OpenFile(desc.Stderr, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	}
	if err != nil {
		return nil, nil, nil, &rcerrors.SystemError{Syscall: "open stderr", Err: err}
	}
	return stdin, stdout, stderr, nil
}

// pipeToLogger spawns command (a shell pipeline, e.g. "logger -t svc") and
// returns the write end of a pipe connected to its stdin, per daemon.c's
// rc_pipe_command.
func pipeToLogger(command string) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	logger := exec.Command("/bin/sh", "-c", command)
	logger.Stdin = r
	logger.Stdout = os.Stdout
	logger.Stderr = os.Stderr
	if err := logger.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	r.Close()
	go logger.Wait()
	return w, nil
}
