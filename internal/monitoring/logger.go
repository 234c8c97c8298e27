// Package monitoring holds the diagnostic logger shared by every package.
// Messages carry a bracketed component prefix, e.g. "[fit] ...".
package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger writes messages for a single component.
type Logger func(format string, v ...interface{})

// Component returns a Logger that prefixes messages with "[name] ". The
// current Logf is looked up on every call, so SetLogger still applies.
func Component(name string) Logger {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// Timed logs how long an operation took once the returned func is called.
func (l Logger) Timed(op string) func() {
	start := time.Now()
	return func() {
		l("%s took %s", op, time.Since(start).Round(time.Millisecond))
	}
}

// Recorder captures log lines; install it with SetLogger(r.Logf).
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf records one formatted line.
func (r *Recorder) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of everything recorded so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
