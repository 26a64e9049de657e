package jsvm

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/sakif/webconsole/internal/executor"
)

// newConsole builds the console object handed to the script.
//
// console.log renders objects, arrays and null with JSON.stringify(v, null, 2)
// and everything else with String(v). error, warn and info always use
// String(v).
func newConsole(vm *goja.Runtime, capture *executor.Capture) (*goja.Object, error) {
	jsonObj := vm.Get("JSON").ToObject(vm)
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("JSON.stringify is not callable")
	}

	structural := func(v goja.Value) string {
		if goja.IsNull(v) {
			return "null"
		}
		obj, isObj := v.(*goja.Object)
		if !isObj {
			return v.String()
		}
		if _, isFn := goja.AssertFunction(obj); isFn {
			return obj.String()
		}
		out, err := stringify(jsonObj, obj, goja.Null(), vm.ToValue(2))
		if err != nil {
			rethrow(vm, err)
		}
		if goja.IsUndefined(out) {
			return ""
		}
		return out.String()
	}

	plain := func(v goja.Value) string {
		return v.String()
	}

	bind := func(sev executor.Severity, format func(goja.Value) string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				args[i] = format(a)
			}
			capture.Write(sev, args...)
			return goja.Undefined()
		}
	}

	console := vm.NewObject()
	methods := []struct {
		name string
		fn   func(goja.FunctionCall) goja.Value
	}{
		{"log", bind(executor.SeverityLog, structural)},
		{"error", bind(executor.SeverityError, plain)},
		{"warn", bind(executor.SeverityWarn, plain)},
		{"info", bind(executor.SeverityInfo, plain)},
	}
	for _, m := range methods {
		if err := console.Set(m.name, m.fn); err != nil {
			return nil, err
		}
	}
	return console, nil
}

// rethrow propagates a JavaScript exception raised inside a native call,
// e.g. JSON.stringify on a cyclic object.
func rethrow(vm *goja.Runtime, err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}
	panic(vm.NewGoError(err))
}
