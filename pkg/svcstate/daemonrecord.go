package svcstate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"openrc-go/internal/rcerrors"
)

// DaemonRecord is one key=value record describing a daemon a service
// started, matched later by the (exec, argv, pidfile) tuple, grounded on
// librc-daemon.c's rc_service_daemon_set/_match_list.
type DaemonRecord struct {
	Exec    string
	Argv    []string
	Pidfile string
}

func (r DaemonRecord) matchKeys() []string {
	keys := make([]string, 0, len(r.Argv)+2)
	if r.Exec != "" {
		keys = append(keys, "exec="+r.Exec)
	}
	for i, a := range r.Argv {
		keys = append(keys, fmt.Sprintf("argv_%d=%s", i, a))
	}
	if r.Pidfile != "" {
		keys = append(keys, "pidfile="+r.Pidfile)
	}
	return keys
}

// DaemonStore persists daemon records under daemons/<svc>/NNN.
type DaemonStore struct {
	stateDir string
}

// NewDaemonStore builds a DaemonStore rooted at stateDir.
func NewDaemonStore(stateDir string) *DaemonStore {
	return &DaemonStore{stateDir: stateDir}
}

func (s *DaemonStore) dir(svc string) string {
	return filepath.Join(s.stateDir, "daemons", svc)
}

// Set erases any existing record matching rec's (exec, argv, pidfile) tuple
// and, if started is true, writes a new numbered record. This mirrors
// rc_service_daemon_set exactly, including renumbering the surviving
// records down by one slot when a match is erased.
func (s *DaemonStore) Set(svc string, rec DaemonRecord, started bool) error {
	dir := s.dir(svc)
	entries, err := os.ReadDir(dir)
	nfiles := 0
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		match := rec.matchKeys()
		var survivors []string
		erased := false
		for _, name := range names {
			existing, rerr := readDaemonRecord(filepath.Join(dir, name))
			if rerr != nil {
				continue
			}
			if !erased && matchesKeys(existing, match) {
				if rerr := os.Remove(filepath.Join(dir, name)); rerr != nil {
					return &rcerrors.SystemError{Syscall: "remove", Err: rerr}
				}
				erased = true
				continue
			}
			survivors = append(survivors, name)
		}
		nfiles = len(survivors)
		for i, name := range survivors {
			want := fmt.Sprintf("%03d", i+1)
			if name != want {
				if rerr := os.Rename(filepath.Join(dir, name), filepath.Join(dir, want)); rerr != nil {
					return &rcerrors.SystemError{Syscall: "rename", Err: rerr}
				}
			}
		}
	} else if !os.IsNotExist(err) {
		return &rcerrors.SystemError{Syscall: "readdir", Err: err}
	}

	if !started {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &rcerrors.SystemError{Syscall: "mkdir", Err: err}
	}
	path := filepath.Join(dir, fmt.Sprintf("%03d", nfiles+1))
	var sb strings.Builder
	fmt.Fprintf(&sb, "exec=%s\n", rec.Exec)
	for i, a := range rec.Argv {
		fmt.Fprintf(&sb, "argv_%d=%s\n", i, a)
	}
	fmt.Fprintf(&sb, "pidfile=%s\n", rec.Pidfile)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return &rcerrors.SystemError{Syscall: "write", Err: err}
	}
	return nil
}

// List returns every daemon record currently stored for svc.
func (s *DaemonStore) List(svc string) ([]DaemonRecord, error) {
	entries, err := os.ReadDir(s.dir(svc))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &rcerrors.SystemError{Syscall: "readdir", Err: err}
	}
	var records []DaemonRecord
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rec, err := readDaemonRecord(filepath.Join(s.dir(svc), e.Name()))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func readDaemonRecord(path string) (DaemonRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return DaemonRecord{}, err
	}
	defer f.Close()

	var rec DaemonRecord
	argvByIndex := map[int]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch {
		case k == "exec":
			rec.Exec = v
		case k == "pidfile":
			rec.Pidfile = v
		case strings.HasPrefix(k, "argv_"):
			idx, err := strconv.Atoi(strings.TrimPrefix(k, "argv_"))
			if err == nil {
				argvByIndex[idx] = v
			}
		}
	}
	if len(argvByIndex) > 0 {
		max := 0
		for idx := range argvByIndex {
			if idx > max {
				max = idx
			}
		}
		rec.Argv = make([]string, max+1)
		for idx, v := range argvByIndex {
			rec.Argv[idx] = v
		}
	}
	return rec, sc.Err()
}

func matchesKeys(rec DaemonRecord, want []string) bool {
	if len(want) == 0 {
		return false
	}
	have := map[string]bool{}
	for _, k := range rec.matchKeys() {
		have[k] = true
	}
	for _, k := range want {
		if !have[k] {
			return false
		}
	}
	return true
}
