// Package rclog is the terminal message and debug logging layer the core
// packages call into. Spec section 1 treats "the terminal message library"
// as an external collaborator; this package is the concrete implementation
// openrc-go supplies for that role, plus a file-backed debug logger in the
// teacher's style.
package rclog

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"sync"
)

// Color names the einfo color slots from libeinfo.c's ecolor table.
type Color int

const (
	ColorNormal Color = iota
	ColorGood
	ColorWarn
	ColorBad
	ColorHilite
	ColorBracket
)

var ansiCodes = map[Color]string{
	ColorNormal:  "\x1b[0m",
	ColorGood:    "\x1b[32;01m",
	ColorWarn:    "\x1b[33;01m",
	ColorBad:     "\x1b[31;01m",
	ColorHilite:  "\x1b[36;01m",
	ColorBracket: "\x1b[34;01m",
}

func yesno(v string) bool {
	switch v {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

func noyes(v string) bool {
	switch v {
	case "no", "n", "false", "0":
		return false
	}
	return v != ""
}

// Quiet reports EINFO_QUIET.
func Quiet() bool { return yesno(os.Getenv("EINFO_QUIET")) }

// Verbose reports EINFO_VERBOSE.
func Verbose() bool { return yesno(os.Getenv("EINFO_VERBOSE")) }

// colorEnabled mirrors libeinfo.c's noyes(getenv("EINFO_COLOR")) check: color
// is on unless explicitly disabled, regardless of tty-ness, matching the
// original's permissive default.
func colorEnabled() bool { return noyes(os.Getenv("EINFO_COLOR")) }

func ecolor(c Color) string {
	if !colorEnabled() {
		return ""
	}
	return ansiCodes[c]
}

// indent reads the current indent level from EINFO_INDENT.
func indent() int {
	n, _ := strconv.Atoi(os.Getenv("EINFO_INDENT"))
	if n < 0 {
		n = 0
	}
	return n
}

func indentPrefix() string {
	n := indent()
	s := ""
	for i := 0; i < n; i++ {
		s += "  "
	}
	return s
}

// Eindent increases the indent level by two, storing it in EINFO_INDENT.
func Eindent() {
	os.Setenv("EINFO_INDENT", strconv.Itoa(indent()+2))
}

// Eoutdent decreases the indent level by two. It preserves the source's
// EINFO_EINDENT misspelling verbatim (see DESIGN.md Open Questions): the new
// value is written to EINFO_EINDENT, not EINFO_INDENT, so repeated calls
// without an intervening Eindent do not actually shrink the visible prefix.
// This is deliberately not "fixed".
func Eoutdent() {
	n := indent() - 2
	if n <= 0 {
		os.Unsetenv("EINFO_EINDENT")
		return
	}
	os.Setenv("EINFO_EINDENT", strconv.Itoa(n))
}

// Einfo prints an informational line: " * msg" in green when colored.
func Einfo(format string, args ...any) {
	if Quiet() {
		return
	}
	fmt.Fprintf(os.Stdout, "%s%s*%s %s\n", indentPrefix(), ecolor(ColorGood), ecolor(ColorNormal), fmt.Sprintf(format, args...))
}

// Ewarn prints a warning line in yellow.
func Ewarn(format string, args ...any) {
	if Quiet() {
		return
	}
	fmt.Fprintf(os.Stdout, "%s%s*%s %s\n", indentPrefix(), ecolor(ColorWarn), ecolor(ColorNormal), fmt.Sprintf(format, args...))
}

// Eerror prints an error line in red to stderr. Unlike Einfo/Ewarn it is
// never suppressed by EINFO_QUIET.
func Eerror(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s%s*%s %s\n", indentPrefix(), ecolor(ColorBad), ecolor(ColorNormal), fmt.Sprintf(format, args...))
}

// Ebracket prints the trailing "[ ok ]"/"[ !! ]" status marker eend-style.
func Ebracket(ok bool, okMsg, failMsg string) {
	if Quiet() {
		return
	}
	msg, color := okMsg, ColorGood
	if !ok {
		msg, color = failMsg, ColorBad
	}
	if msg == "" {
		if ok {
			msg = "ok"
		} else {
			msg = "!!"
		}
	}
	fmt.Fprintf(os.Stdout, " %s[%s %s%s%s %s]%s\n",
		ecolor(ColorBracket), ecolor(ColorNormal),
		ecolor(color), msg, ecolor(ColorNormal),
		ecolor(ColorBracket), ecolor(ColorNormal))
}

var (
	debugOnce   sync.Once
	debugFile   *os.File
	debugLogger *log.Logger
)

// sensitivePatterns redacts likely secrets before they hit the debug log,
// adapted from cmd/utils/log.go's sanitizeLogMessage table.
var sensitivePatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)(password[=:\s]+['"]?)[^\s&'"]+`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(token[=:\s]+['"]?)[a-zA-Z0-9\-_.]{16,}`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(secret[=:\s]+['"]?)[a-zA-Z0-9\-_.]{8,}`), "${1}[REDACTED]"},
}

func sanitize(msg string) string {
	for _, sp := range sensitivePatterns {
		msg = sp.pattern.ReplaceAllString(msg, sp.replacement)
	}
	return msg
}

// InitDebug opens the debug log file at path (or "openrc.debug.log" in the
// current directory when path is empty), safe to call multiple times.
func InitDebug(path string) error {
	var initErr error
	debugOnce.Do(func() {
		if path == "" {
			path = "openrc.debug.log"
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			initErr = err
			return
		}
		debugFile = f
		debugLogger = log.New(io.MultiWriter(f), "", log.LstdFlags|log.Lmicroseconds)
	})
	return initErr
}

// CloseDebug flushes and closes the debug log file, if open.
func CloseDebug() {
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
	}
}

// Debug writes a sanitized debug line. It is a no-op when RC_DEBUG is
// unset; a failed lazy init is reported through Eerror and the line is
// dropped.
func Debug(format string, args ...any) {
	if os.Getenv("RC_DEBUG") == "" {
		return
	}
	if debugLogger == nil {
		if err := InitDebug(""); err != nil {
			Eerror("failed to initialize debug logger: %v", err)
			return
		}
	}
	debugLogger.Println(sanitize(fmt.Sprintf(format, args...)))
}
