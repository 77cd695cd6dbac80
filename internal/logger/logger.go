// Package logger provides leveled stderr logging for Veritas.
// Debug, Info and Warn messages are printed only in verbose mode (--verbose);
// Error messages are always printed. Request-scoped code logs through a
// Scope so every line carries the tenant it was produced for.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetTimestamps prefixes every line with an RFC 3339 UTC timestamp.
// Long-running servers enable this; one-shot CLI commands do not.
func SetTimestamps(v bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = v
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// write emits one line. Caller must hold mu for reading.
func write(level, prefix, format string, args ...any) {
	var stamp string
	if timestamps {
		stamp = now().UTC().Format(time.RFC3339) + " "
	}
	fmt.Fprintf(output, stamp+"["+level+"] "+prefix+format+"\n", args...)
}

func logf(level string, always bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose || always {
		write(level, prefix, format, args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf("DEBUG", false, "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf("INFO", false, "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf("WARN", false, "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf("ERROR", true, "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scope is a logger bound to one tenant.
type Scope struct {
	prefix string
}

// ForTenant returns a Scope whose lines are tagged with tenant=<id>.
func ForTenant(tenant string) Scope {
	return Scope{prefix: "tenant=" + strings.ReplaceAll(tenant, "%", "%%") + " "}
}

// Debug prints a tenant-tagged message if verbose mode is enabled.
func (s Scope) Debug(format string, args ...any) {
	logf("DEBUG", false, s.prefix, format, args...)
}

// Info prints a tenant-tagged message if verbose mode is enabled.
func (s Scope) Info(format string, args ...any) {
	logf("INFO", false, s.prefix, format, args...)
}

// Warn prints a tenant-tagged warning if verbose mode is enabled.
func (s Scope) Warn(format string, args ...any) {
	logf("WARN", false, s.prefix, format, args...)
}

// Error prints a tenant-tagged error regardless of verbose mode.
func (s Scope) Error(format string, args ...any) {
	logf("ERROR", true, s.prefix, format, args...)
}
