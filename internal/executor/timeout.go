package executor

import (
	"context"
	"time"
)

// Timeout bounds every execution of the wrapped Executor. A run that
// outlives the bound is interrupted by its runner and reported as a
// runtime error.
type Timeout struct {
	next Executor
	d    time.Duration
}

var _ Executor = Timeout{}

// WithTimeout wraps next. A non-positive d returns next unchanged.
func WithTimeout(next Executor, d time.Duration) Executor {
	if d <= 0 {
		return next
	}
	return Timeout{next: next, d: d}
}

func (t Timeout) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Execute(ctx, req)
}
