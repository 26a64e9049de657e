package executor

import (
	"context"
	"errors"
)

// ScriptRunner evaluates untrusted script text.
//
// The source is run as the body of a function whose single parameter is a
// console object writing into capture; no other host capability is handed
// to the script. A non-nil error is the script's fault. Runners report
// thrown values as *ScriptError so the engine can show the script's own
// message.
//
// Evaluating arbitrary text needs a real interpreter: see the jsvm package
// for an embedded one and the docker package for a containerized Node.js.
type ScriptRunner interface {
	Run(ctx context.Context, source string, capture *Capture) error
}

// ScriptError is a fault raised by the evaluated script.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// faultMessage extracts the text shown after "Runtime Error: ".
func faultMessage(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
