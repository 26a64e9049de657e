// Package jsvm runs console JavaScript in an embedded ECMAScript VM.
//
// Each Run gets a fresh goja runtime. The script sees the ECMAScript
// built-ins and the capturing console passed to it, nothing else: no
// require, no timers, no file or network access.
package jsvm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/sakif/webconsole/internal/executor"
)

// DefaultMaxCallStackSize bounds JavaScript recursion depth.
const DefaultMaxCallStackSize = 10000

// Runner implements executor.ScriptRunner with goja.
type Runner struct {
	maxCallStackSize int
	logger           *slog.Logger
}

var _ executor.ScriptRunner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithMaxCallStackSize overrides DefaultMaxCallStackSize.
func WithMaxCallStackSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxCallStackSize = n
		}
	}
}

// WithLogger sets the logger used for runner diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		maxCallStackSize: DefaultMaxCallStackSize,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates source like `new Function("console", source)(console)`.
// Cancelling ctx interrupts the script.
func (r *Runner) Run(ctx context.Context, source string, capture *executor.Capture) error {
	if err := ctx.Err(); err != nil {
		return &executor.ScriptError{Message: fmt.Sprintf("execution interrupted: %v", err)}
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(r.maxCallStackSize)

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	console, err := newConsole(vm, capture)
	if err != nil {
		return fmt.Errorf("jsvm: building console: %w", err)
	}

	body, err := vm.New(vm.Get("Function"), vm.ToValue("console"), vm.ToValue(source))
	if err != nil {
		return fault(err)
	}
	call, ok := goja.AssertFunction(body)
	if !ok {
		return fmt.Errorf("jsvm: Function constructor returned a non-callable value")
	}

	if _, err := call(goja.Undefined(), console); err != nil {
		r.logger.Debug("script raised", slog.String("error", err.Error()))
		return fault(err)
	}
	return nil
}

// fault converts a goja error into the message a browser would show for
// `e instanceof Error ? e.message : String(e)`.
func fault(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &executor.ScriptError{Message: fmt.Sprintf("execution interrupted: %v", interrupted.Value())}
	}

	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return &executor.ScriptError{Message: err.Error()}
	}

	thrown := ex.Value()
	if thrown == nil {
		return &executor.ScriptError{Message: ex.Error()}
	}
	if obj, ok := thrown.(*goja.Object); ok && obj.ClassName() == "Error" {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return &executor.ScriptError{Message: msg.String()}
		}
		return &executor.ScriptError{Message: ""}
	}
	return &executor.ScriptError{Message: thrown.String()}
}
