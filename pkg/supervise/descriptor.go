// Package supervise implements C5: the daemon supervisor that forks a
// long-lived process under configured resource/privilege constraints,
// watches for exit, respawns under policy, and listens for control and
// readiness notifications. Grounded on
// original_source/src/supervise-daemon/supervise.c and daemon.c.
package supervise

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"openrc-go/internal/rcerrors"
	"openrc-go/pkg/rcpath"
)

// Descriptor holds one daemon's spawn configuration, read from the
// per-service option files under options/<svc>/ (pkg/rcpath's value
// store), per spec 4.5 setup phase step 1.
type Descriptor struct {
	Service string
	Exec    string
	Argv    []string
	Env     []string

	User   string // "user[:group]"
	Chroot string
	Chdir  string
	Umask  string

	Nicelevel     int
	HasNicelevel  bool
	Ionice        string // "class:data"
	OOMScoreAdj   int
	HasOOMScore   bool
	Scheduler     string // fifo|rr|other|batch|idle|<int>
	SchedPriority int

	Capabilities string
	Secbits      string
	NoNewPrivs   bool

	Stdin        string
	Stdout       string
	Stderr       string
	StdoutLogger string
	StderrLogger string

	HealthcheckTimer time.Duration
	HealthcheckDelay time.Duration
	RespawnDelay     time.Duration
	RespawnPeriod    time.Duration
	RespawnMax       int

	Notify string // "fd:N", "socket:ready", or ""
}

// DefaultRespawnMax is supervise.c's hardcoded respawn_max default.
const DefaultRespawnMax = 10

// LoadDescriptor reads a Descriptor for svc from layout's option-value
// store, mirroring supervise.c's sequence of rc_service_value_get calls.
func LoadDescriptor(layout *rcpath.Layout, svc string) (*Descriptor, error) {
	d := &Descriptor{Service: svc, RespawnMax: DefaultRespawnMax}

	get := func(key string) (string, bool, error) { return layout.ValueGet(svc, key) }

	if v, ok, err := get("exec"); err != nil {
		return nil, err
	} else if ok {
		d.Exec = v
	}
	if v, ok, err := get("argc"); err != nil {
		return nil, err
	} else if ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &rcerrors.ConfigError{Op: "parse argc", Err: convErr}
		}
		argvRaw, argvOK, err := get("argv")
		if err != nil {
			return nil, err
		}
		if argvOK {
			parts := strings.Split(argvRaw, "\n")
			if len(parts) > n {
				parts = parts[:n]
			}
			d.Argv = parts
		}
	}
	if v, ok, err := get("env"); err != nil {
		return nil, err
	} else if ok {
		d.Env = strings.Split(v, "\n")
	}

	strFields := map[string]*string{
		"user":          &d.User,
		"chroot":        &d.Chroot,
		"chdir":         &d.Chdir,
		"umask":         &d.Umask,
		"ionice":        &d.Ionice,
		"scheduler":     &d.Scheduler,
		"capabilities":  &d.Capabilities,
		"secbits":       &d.Secbits,
		"stdin":         &d.Stdin,
		"stdout":        &d.Stdout,
		"stderr":        &d.Stderr,
		"stdout-logger": &d.StdoutLogger,
		"stderr-logger": &d.StderrLogger,
		"notify":        &d.Notify,
	}
	for key, dst := range strFields {
		if v, ok, err := get(key); err != nil {
			return nil, err
		} else if ok {
			*dst = v
		}
	}

	if v, ok, err := get("nicelevel"); err != nil {
		return nil, err
	} else if ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &rcerrors.ConfigError{Op: "parse nicelevel", Err: convErr}
		}
		d.Nicelevel, d.HasNicelevel = n, true
	}
	if v, ok, err := get("oom-score-adj"); err != nil {
		return nil, err
	} else if ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &rcerrors.ConfigError{Op: "parse oom-score-adj", Err: convErr}
		}
		d.OOMScoreAdj, d.HasOOMScore = n, true
	}
	if v, ok, err := get("scheduler-priority"); err != nil {
		return nil, err
	} else if ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &rcerrors.ConfigError{Op: "parse scheduler-priority", Err: convErr}
		}
		d.SchedPriority = n
	}
	if v, ok, err := get("no-new-privs"); err != nil {
		return nil, err
	} else if ok {
		d.NoNewPrivs = yesno(v)
	}

	durFields := map[string]*time.Duration{
		"healthcheck-timer": &d.HealthcheckTimer,
		"healthcheck-delay": &d.HealthcheckDelay,
		"respawn-delay":     &d.RespawnDelay,
		"respawn-period":    &d.RespawnPeriod,
	}
	for key, dst := range durFields {
		v, ok, err := get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		dur, perr := parseDuration(v)
		if perr != nil {
			return nil, &rcerrors.ConfigError{Op: fmt.Sprintf("parse %s", key), Err: perr}
		}
		*dst = dur
	}
	if v, ok, err := get("respawn-max"); err != nil {
		return nil, err
	} else if ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &rcerrors.ConfigError{Op: "parse respawn-max", Err: convErr}
		}
		d.RespawnMax = n
	}

	if d.Exec == "" && len(d.Argv) > 0 {
		d.Exec = d.Argv[0]
	}
	return d, nil
}

func yesno(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

// parseDuration accepts a bare integer as seconds (supervise.c's
// parse_duration over a plain atoi) or a Go duration suffix ("5s", "500ms").
func parseDuration(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// NotifyKind distinguishes the two notify specifier forms spec 4.5 defines.
type NotifyKind int

const (
	NotifyNone NotifyKind = iota
	NotifyFD
	NotifySocket
)

// NotifySpec is the parsed form of Descriptor.Notify.
type NotifySpec struct {
	Kind NotifyKind
	FD   int // target fd inside the child, for NotifyFD
}

// ParseNotify parses "fd:N" or "socket:ready", per spec 4.5 step 2.
func ParseNotify(spec string) (NotifySpec, error) {
	if spec == "" {
		return NotifySpec{Kind: NotifyNone}, nil
	}
	kind, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return NotifySpec{}, &rcerrors.ConfigError{Op: "parse notify", Err: fmt.Errorf("missing ':' in %q", spec)}
	}
	switch kind {
	case "fd":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return NotifySpec{}, &rcerrors.ConfigError{Op: "parse notify fd", Err: err}
		}
		return NotifySpec{Kind: NotifyFD, FD: n}, nil
	case "socket":
		if rest != "ready" {
			return NotifySpec{}, &rcerrors.ConfigError{Op: "parse notify socket", Err: fmt.Errorf("unknown socket mode %q", rest)}
		}
		return NotifySpec{Kind: NotifySocket}, nil
	default:
		return NotifySpec{}, &rcerrors.ConfigError{Op: "parse notify", Err: fmt.Errorf("unknown notify kind %q", kind)}
	}
}
