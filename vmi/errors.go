package vmi

import (
	"fmt"
	"strings"
)

// RuntimeError is a failed dispatch: a message plus the call-stack trace
// captured at the moment of failure, one line per active frame.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		name := f.Closure.Function.DisplayName()
		trace = append(trace, fmt.Sprintf("[line %d] in %s", f.line(), name))
	}
	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
