package executor

import (
	"strings"
	"sync"
)

// Severity is the console method a captured line came from.
type Severity int

const (
	SeverityLog Severity = iota
	SeverityError
	SeverityWarn
	SeverityInfo
)

var severityPrefix = map[Severity]string{
	SeverityLog:   "",
	SeverityError: "ERROR: ",
	SeverityWarn:  "WARNING: ",
	SeverityInfo:  "INFO: ",
}

// ParseSeverity maps a console method name to a Severity.
// Unknown names are treated as plain log calls.
func ParseSeverity(method string) Severity {
	switch method {
	case "error":
		return SeverityError
	case "warn":
		return SeverityWarn
	case "info":
		return SeverityInfo
	default:
		return SeverityLog
	}
}

// Capture collects the console output of a single script run.
//
// A Capture is created for one call and released when the call returns;
// writes after Release are dropped, so a script that stashes its console
// object somewhere cannot append to a finished result.
type Capture struct {
	mu       sync.Mutex
	lines    []string
	released bool
}

// NewCapture returns an empty, active capture.
func NewCapture() *Capture {
	return &Capture{}
}

// Write records one console call. The already stringified arguments are
// joined with a single space and prefixed according to the severity.
// It reports whether the line was kept.
func (c *Capture) Write(sev Severity, args ...string) bool {
	line := severityPrefix[sev] + strings.Join(args, " ")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return false
	}
	c.lines = append(c.lines, line)
	return true
}

func (c *Capture) Log(args ...string)   { c.Write(SeverityLog, args...) }
func (c *Capture) Error(args ...string) { c.Write(SeverityError, args...) }
func (c *Capture) Warn(args ...string)  { c.Write(SeverityWarn, args...) }
func (c *Capture) Info(args ...string)  { c.Write(SeverityInfo, args...) }

// Lines returns a copy of the captured lines in call order.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Release ends the capture. It is safe to call more than once.
func (c *Capture) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}

// Released reports whether Release has been called.
func (c *Capture) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
