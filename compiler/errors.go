package compiler

import (
	"fmt"
	"strings"
)

// CompileError is one compile-time diagnostic: a source line and a
// message, formatted the way the scanner/parser prints to stderr.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// Errors collects every diagnostic panic-mode recovery let the compiler
// continue past. A non-empty Errors is always returned alongside a nil
// *bytecode.ObjFunction from Compile.
type Errors []*CompileError

func (e Errors) Error() string {
	lines := make([]string, len(e))
	for i, ce := range e {
		lines[i] = ce.Error()
	}
	return strings.Join(lines, "\n")
}
