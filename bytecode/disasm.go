package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/loxlang/loxvm/value"
)

// Disassemble writes a human-readable listing of every instruction in c
// to w, prefixed by name. Grounded on the teacher's disasm.go
// instruction-by-instruction walk.
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints one instruction starting at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpClosure:
		return disassembleClosure(w, c, offset)
	case OpInvoke, OpSuperInvoke:
		return disassembleInvoke(w, c, offset)
	default:
		n := operandLen[op]
		switch n {
		case 0:
			fmt.Fprintln(w, op)
			return offset + 1
		case 1:
			operand := c.Code[offset+1]
			if isConstantOp(op) {
				fmt.Fprintf(w, "%-16s %4d '%s'\n", op, operand, describeConstant(c, int(operand)))
			} else {
				fmt.Fprintf(w, "%-16s %4d\n", op, operand)
			}
			return offset + 2
		case 2:
			jump := binary.BigEndian.Uint16(c.Code[offset+1 : offset+3])
			fmt.Fprintf(w, "%-16s %4d\n", op, jump)
			return offset + 3
		default:
			fmt.Fprintf(w, "%-16s (bad operand length)\n", op)
			return offset + 1
		}
	}
}

func isConstantOp(op OpCode) bool {
	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		return true
	default:
		return false
	}
}

func describeConstant(c *Chunk, index int) string {
	if index < 0 || index >= len(c.Constants) {
		return "?"
	}
	v := c.Constants[index]
	if v.IsNumber() {
		return fmt.Sprintf("%g", v.Number())
	}
	if s := value.AsObjString(v); s != nil {
		return s.Chars
	}
	if fn := AsObjFunction(v); fn != nil {
		return "<fn " + fn.DisplayName() + ">"
	}
	switch v {
	case value.Nil:
		return "nil"
	case value.True:
		return "true"
	case value.False:
		return "false"
	}
	return "?"
}

// disassembleInvoke prints OP_INVOKE/OP_SUPER_INVOKE's two operand
// bytes as what they actually are: a constant-pool index for the
// method name followed by an argument count, not one combined u16.
func disassembleInvoke(w io.Writer, c *Chunk, offset int) int {
	op := OpCode(c.Code[offset])
	nameIdx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, nameIdx, describeConstant(c, int(nameIdx)))
	return offset + 3
}

func disassembleClosure(w io.Writer, c *Chunk, offset int) int {
	constIdx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", OpClosure, constIdx)
	next := offset + 2
	fn := AsObjFunction(c.Constants[constIdx])
	if fn == nil {
		return next
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[next]
		index := c.Code[next+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
		next += 2
	}
	return next
}
