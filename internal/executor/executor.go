// Package executor is the mock code-execution engine behind the console.
//
// Nothing here compiles or sandboxes anything. JavaScript is evaluated by a
// ScriptRunner with a capturing console object; C is never run at all, its
// output is synthesized from the printf calls found in the source text; every
// other language gets a fixed "coming soon" notice.
//
// Execute never fails from the caller's point of view: faults are folded into
// an ExecutionResult with StatusRuntimeError.
package executor

import (
	"context"
	"fmt"
	"time"
)

// ExecutionRequest is one run of the console.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExecutionResult is the rendered console payload of one run.
type ExecutionResult struct {
	Output   string        `json:"output"`
	Status   Status        `json:"status"`
	Language string        `json:"language"`
	Duration time.Duration `json:"duration"`
}

// Executor runs code and always produces exactly one result.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) ExecutionResult
}

// Status classifies an ExecutionResult.
type Status int

const (
	StatusSuccess Status = iota
	StatusRuntimeError
	StatusUnsupported
)

var statusNames = map[Status]string{
	StatusSuccess:      "success",
	StatusRuntimeError: "runtime_error",
	StatusUnsupported:  "unsupported",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status as its snake_case name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("executor: unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a snake_case status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("executor: unknown status %q", text)
}
