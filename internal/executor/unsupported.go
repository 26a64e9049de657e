package executor

import "strings"

// unsupported renders the notice for a language that is listed but not
// executable. It only depends on the display name, never on the source.
func unsupported(name string) ExecutionResult {
	var b strings.Builder
	b.WriteString(name + " support is coming soon!\n\n")
	b.WriteString("Features in development:\n")
	b.WriteString("• Full " + name + " compilation and execution\n")
	b.WriteString("• Advanced debugging capabilities\n")
	b.WriteString("• Library and framework support\n")
	b.WriteString("• Real-time error detection\n\n")
	b.WriteString("Try JavaScript or C for now - they're fully functional!")

	return ExecutionResult{Output: b.String(), Status: StatusUnsupported}
}
