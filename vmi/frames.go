package vmi

// CallFrame is one entry in the VM's call stack: the closure being
// executed, an instruction pointer into that closure's function's
// Chunk, and the base index into the VM's value stack identifying the
// frame's slot window.
type CallFrame struct {
	Closure *ObjClosure
	IP      int
	Base    int
}

func (f *CallFrame) chunk() []byte { return f.Closure.Function.Chunk.Code }

func (f *CallFrame) line() int {
	if f.IP == 0 {
		return f.Closure.Function.Chunk.Lines[0]
	}
	return f.Closure.Function.Chunk.Lines[f.IP-1]
}
