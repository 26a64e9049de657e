package executor

import (
	"fmt"
	"regexp"
	"strings"
)

// The C "compiler" is a text scanner over printf call shapes. It does not
// parse C and must not grow into a parser: arguments are never evaluated,
// placeholders get fixed sample values.
var (
	printfCall = regexp.MustCompile(`printf\s*\(\s*"([^"]*)"(?:\s*,\s*([^)]*))?\s*\)`)
	intDecl    = regexp.MustCompile(`int\s+\w+\s*=\s*(\d+)`)
)

const defaultIntSample = "42"

var compilePreamble = []string{
	"Compiling C code...",
	"Compilation successful",
	"Running executable...",
	"",
}

var entryPointFallback = []string{
	"Program executed successfully",
	"Exit code: 0",
}

// Placeholder replacements applied in order. %d is resolved per source.
var placeholderSamples = []struct {
	verb  string
	value string
}{
	{"%s", "string_value"},
	{"%c", "A"},
	{"%f", "3.14"},
	{"%lu", "8"},
}

func runPattern(source string) (res ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = runtimeError("Compilation Error: " + fmt.Sprint(r))
		}
	}()

	out := append([]string(nil), compilePreamble...)

	matches := printfCall.FindAllStringSubmatch(source, -1)
	if len(matches) > 0 {
		intSample := firstIntLiteral(source)
		for _, m := range matches {
			out = append(out, renderFormat(m[1], m[2], intSample))
		}
	} else if strings.Contains(source, "main") {
		out = append(out, entryPointFallback...)
	}

	return ExecutionResult{Output: strings.Join(out, "\n"), Status: StatusSuccess}
}

// renderFormat substitutes placeholders (only when the call had arguments)
// and then un-escapes \n, \t and \\ in that order.
func renderFormat(format, args, intSample string) string {
	if args != "" {
		format = strings.ReplaceAll(format, "%d", intSample)
		for _, p := range placeholderSamples {
			format = strings.ReplaceAll(format, p.verb, p.value)
		}
	}

	format = strings.ReplaceAll(format, `\n`, "\n")
	format = strings.ReplaceAll(format, `\t`, "\t")
	format = strings.ReplaceAll(format, `\\`, `\`)
	return format
}

// firstIntLiteral returns the value of the first `int name = N` declaration
// anywhere in the source.
func firstIntLiteral(source string) string {
	if m := intDecl.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return defaultIntSample
}
