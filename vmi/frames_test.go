package vmi

import (
	"testing"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/value"
)

func TestCallFrameLineAtStart(t *testing.T) {
	fn := bytecode.NewObjFunction()
	fn.Chunk.Write(byte(bytecode.OpNil), 7)
	closure := &ObjClosure{Obj: value.Obj{Type: value.ObjClosure}, Function: fn}
	frame := &CallFrame{Closure: closure, IP: 0}

	if got := frame.line(); got != 7 {
		t.Errorf("line() at IP 0 = %d, want 7", got)
	}
}

func TestCallFrameLineAfterAdvance(t *testing.T) {
	fn := bytecode.NewObjFunction()
	fn.Chunk.Write(byte(bytecode.OpNil), 3)
	fn.Chunk.Write(byte(bytecode.OpPop), 4)
	closure := &ObjClosure{Obj: value.Obj{Type: value.ObjClosure}, Function: fn}
	frame := &CallFrame{Closure: closure, IP: 2}

	if got := frame.line(); got != 4 {
		t.Errorf("line() at IP 2 = %d, want 4", got)
	}
}

func TestCallFrameChunkReturnsClosureCode(t *testing.T) {
	fn := bytecode.NewObjFunction()
	fn.Chunk.Write(byte(bytecode.OpReturn), 1)
	closure := &ObjClosure{Obj: value.Obj{Type: value.ObjClosure}, Function: fn}
	frame := &CallFrame{Closure: closure}

	if len(frame.chunk()) != 1 || frame.chunk()[0] != byte(bytecode.OpReturn) {
		t.Errorf("chunk() = %v, want single OP_RETURN byte", frame.chunk())
	}
}
