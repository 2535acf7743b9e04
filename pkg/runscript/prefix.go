package runscript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sys/unix"
)

// cursorUp matches the ANSI cursor-up sequence rclog's bracket messages use
// to rewrite an in-progress "..." line into "[ok]"/"[!!]"; such lines are
// passed through unprefixed so the rewrite still lands on the right row.
var cursorUp = regexp.MustCompile(`^\x1b\[\d*A`)

// PrefixWriter serializes per-line writes from many service drivers onto a
// shared sink, each line tagged with its owning service name, guarded by
// an advisory flock on lockPath so concurrent writers in parallel mode
// don't interleave mid-line. Grounded on openrc-run.c's parallel output
// prefixing and the teacher's bufio.Scanner line-pump pattern.
type PrefixWriter struct {
	sink     io.Writer
	svc      string
	lockPath string
}

// NewPrefixWriter builds a PrefixWriter writing to sink on behalf of svc,
// serialized through lockPath.
func NewPrefixWriter(sink io.Writer, svc, lockPath string) *PrefixWriter {
	return &PrefixWriter{sink: sink, svc: svc, lockPath: lockPath}
}

// PumpLines reads complete lines from r and writes each, prefixed, to the
// shared sink, until r is exhausted.
func (p *PrefixWriter) PumpLines(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := p.writeLine(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (p *PrefixWriter) writeLine(line string) error {
	unlock, err := p.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if cursorUp.MatchString(line) {
		_, err := fmt.Fprintln(p.sink, line)
		return err
	}
	_, err = fmt.Fprintf(p.sink, "%s | %s\n", p.svc, line)
	return err
}

func (p *PrefixWriter) lock() (func(), error) {
	if p.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(p.lockPath), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
