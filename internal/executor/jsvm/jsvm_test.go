package jsvm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/executor/jsvm"
)

func run(t *testing.T, r *jsvm.Runner, source string) ([]string, error) {
	t.Helper()
	c := executor.NewCapture()
	err := r.Run(context.Background(), source, c)
	c.Release()
	return c.Lines(), err
}

func TestRunner_ConsoleMethods(t *testing.T) {
	lines, err := run(t, jsvm.New(), `
console.log("a", 1);
console.error("e");
console.warn("w");
console.info("i");
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a 1", "ERROR: e", "WARNING: w", "INFO: i"}, lines)
}

func TestRunner_ConsoleIsTheFunctionParameter(t *testing.T) {
	lines, err := run(t, jsvm.New(), `console.log(arguments.length, typeof console.log);`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 function"}, lines)
}

func TestRunner_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"error object", `throw new TypeError("bad type")`, "bad type"},
		{"reference", `missing()`, "missing is not defined"},
		{"string", `throw "plain"`, "plain"},
		{"number", `throw 7`, "7"},
		{"error without message", `throw new Error()`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, jsvm.New(), tt.source)
			require.Error(t, err)

			var se *executor.ScriptError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Message)
		})
	}
}

func TestRunner_OutputBeforeFaultIsKept(t *testing.T) {
	lines, err := run(t, jsvm.New(), `console.log("one"); null.x;`)
	require.Error(t, err)
	assert.Equal(t, []string{"one"}, lines)
}

func TestRunner_StackOverflowIsAFault(t *testing.T) {
	_, err := run(t, jsvm.New(jsvm.WithMaxCallStackSize(100)), `function f() { return f(); } f();`)
	require.Error(t, err)
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := executor.NewCapture()
	err := jsvm.New().Run(ctx, `console.log("never")`, c)

	var se *executor.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "execution interrupted")
	assert.Empty(t, c.Lines())
}

func TestRunner_InterruptedByDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := jsvm.New().Run(ctx, `for (;;) {}`, executor.NewCapture())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_StashedConsoleCannotWriteAfterRelease(t *testing.T) {
	r := jsvm.New()

	c := executor.NewCapture()
	require.NoError(t, r.Run(context.Background(), `globalThis.kept = console; console.log("in");`, c))
	c.Release()

	assert.False(t, c.Write(executor.SeverityLog, "after"))
	assert.Equal(t, []string{"in"}, c.Lines())
}

func TestRunner_ConcurrentRunsAreIsolated(t *testing.T) {
	r := jsvm.New()

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := executor.NewCapture()
			_ = r.Run(context.Background(), `globalThis.counter = (globalThis.counter || 0) + 1; console.log(counter);`, c)
			results[i] = c.Lines()
		}()
	}
	wg.Wait()

	for _, lines := range results {
		assert.Equal(t, []string{"1"}, lines)
	}
}
