// Package debug provides conditional debug logging for mw.
//
// Debug logging is enabled by setting the MW_DEBUG environment variable:
//
//	MW_DEBUG=1 mw -file maps.json
//
// When enabled, debug messages are written to stderr with timestamps. While
// the TUI owns the terminal, set MW_DEBUG_FILE to write them to a file instead.
// When disabled (default), all debug functions are no-ops with zero overhead.
//
// Usage:
//
//	import "github.com/vanderheijden86/mindwork/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("toggled %s (%d visible)", name, count)
//	    // ...
//	    debug.LogTiming("reconcile", elapsed)
//	}
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

var (
	// enabled is true when MW_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [MW_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("MW_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[MW_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
// Note: This also requires initializing the logger if not already done.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[MW_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Assert logs a message and panics if the condition is false.
// Only active when debug is enabled; reconciliation uses it to check the
// enter/update/exit partition on every pass.
func Assert(cond bool, msg string) {
	if !enabled {
		return
	}
	if !cond {
		logger.Printf("ASSERTION FAILED: %s", msg)
		panic(fmt.Sprintf("debug assertion failed: %s", msg))
	}
}

// SetOutput redirects debug output, e.g. to a log file while the TUI owns the
// terminal. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger = log.New(w, "[MW_DEBUG] ", log.Ltime|log.Lmicroseconds)
}
