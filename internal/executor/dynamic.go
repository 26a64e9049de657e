package executor

import (
	"context"
	"fmt"
	"strings"
)

// NoOutputMessage is the result text of a script that printed nothing.
const NoOutputMessage = "Code executed successfully (no output)"

const runtimeErrorPrefix = "Runtime Error: "

func (e *Engine) runDynamic(ctx context.Context, source string) (res ExecutionResult) {
	capture := NewCapture()
	defer capture.Release()

	defer func() {
		if r := recover(); r != nil {
			res = runtimeError(runtimeErrorPrefix + fmt.Sprint(r))
		}
	}()

	if e.runner == nil {
		return runtimeError(runtimeErrorPrefix + "no script runner configured")
	}

	if err := e.runner.Run(ctx, source, capture); err != nil {
		return runtimeError(runtimeErrorPrefix + faultMessage(err))
	}

	lines := capture.Lines()
	if len(lines) == 0 {
		return ExecutionResult{Output: NoOutputMessage, Status: StatusSuccess}
	}
	return ExecutionResult{Output: strings.Join(lines, "\n"), Status: StatusSuccess}
}

func runtimeError(output string) ExecutionResult {
	return ExecutionResult{Output: output, Status: StatusRuntimeError}
}
