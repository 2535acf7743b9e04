package svcstate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// isProcessAlive tests pid liveness with signal 0, grounded on
// cmd/orchestrator/process_check_unix.go's isProcessAlive: EPERM still
// means the process exists, just owned by someone else.
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, unix.EPERM)
}

// pidIsExec checks /proc/<pid>/stat's parenthesized comm field against
// exec's basename, grounded on librc-daemon.c's pid_is_exec.
func pidIsExec(pid int, exec string) bool {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	open := bytes.IndexByte(data, '(')
	close := bytes.LastIndexByte(data, ')')
	if open < 0 || close < 0 || close <= open {
		return false
	}
	return string(data[open+1:close]) == filepath.Base(exec)
}

// pidIsArgv checks /proc/<pid>/cmdline's NUL-separated tokens against argv,
// grounded on librc-daemon.c's pid_is_argv.
func pidIsArgv(pid int, argv []string) bool {
	if len(argv) == 0 {
		return true
	}
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return false
	}
	tokens := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(tokens) < len(argv) {
		return false
	}
	for i, want := range argv {
		if tokens[i] != want {
			return false
		}
	}
	return true
}

// envID reads the "envID:" field from /proc/<pid>/status, grounded on
// librc-daemon.c's vz_pid, which reads the same field to tell an OpenVZ
// host's own processes (envID 0) from a guest container's (envID > 0).
// Absent the field entirely (any non-OpenVZ kernel), ok is false and the
// probe is a no-op.
func envID(pid int) (id int, ok bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		field, ok := strings.CutPrefix(line, "envID:")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// selfEnvID is this process's own envID, read once; on a non-OpenVZ
// kernel envID() reports ok=false and vzPID always returns false.
var selfEnvID, selfEnvIDOK = envID(os.Getpid())

// vzPID reports whether pid belongs to a different OpenVZ guest than
// this service manager, grounded on librc-daemon.c's vz_pid check
// (rc_find_pids skips such pids rather than treating them as live).
func vzPID(pid int) bool {
	if !selfEnvIDOK {
		return false
	}
	id, ok := envID(pid)
	if !ok {
		return false
	}
	return id != selfEnvID
}

// findPIDs scans /proc for processes matching exec and/or argv, a reduced
// form of librc-daemon.c's rc_find_pids, filtering out any pid belonging
// to a foreign OpenVZ guest container via vzPID; this port targets Linux
// only and does not implement PID namespace checks beyond that, since
// those require host-level introspection outside the scope of a single
// service manager instance.
func findPIDs(exec string, argv []string) []int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if vzPID(pid) {
			continue
		}
		if exec != "" && !pidIsExec(pid, exec) {
			continue
		}
		if len(argv) > 0 && !pidIsArgv(pid, argv) {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// DaemonsCrashed reports whether any daemon record for svc looks crashed:
// a pidfile that no longer resolves to a live process, or (absent a
// pidfile) no /proc process matching the recorded exec/argv, per
// librc-daemon.c's rc_service_daemons_crashed.
func DaemonsCrashed(store *DaemonStore, svc string) (bool, error) {
	records, err := store.List(svc)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.Pidfile != "" {
			pid, err := readPidfile(rec.Pidfile)
			if err != nil {
				return true, nil
			}
			if !isProcessAlive(pid) {
				return true, nil
			}
			continue
		}
		if len(findPIDs(rec.Exec, rec.Argv)) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func readPidfile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
