package bytecode

// OpCode is a single bytecode instruction.
type OpCode byte

const (
	OpConstant OpCode = iota // u8 k: push chunk.Constants[k]
	OpNil                    // push Nil
	OpTrue                   // push True
	OpFalse                  // push False
	OpPop                    // pop and discard

	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper

	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNot
	OpNegate

	OpPrint

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn

	OpClass
	OpInherit
	OpMethod

	OpBuildList
	OpIndexGet
	OpIndexSet

	OpFinishBegin
	OpFinishEnd
	OpAsyncBegin
	OpAsyncEnd
	OpFutureBegin

	numOpCodes
)

// operandLen reports how many operand bytes follow the opcode itself,
// used by the disassembler.
// -1 marks a variable-length encoding (OpClosure).
var operandLen = [numOpCodes]int{
	OpConstant:     1,
	OpNil:          0,
	OpTrue:         0,
	OpFalse:        0,
	OpPop:          0,
	OpGetLocal:     1,
	OpSetLocal:     1,
	OpGetGlobal:    1,
	OpDefineGlobal: 1,
	OpSetGlobal:    1,
	OpGetUpvalue:   1,
	OpSetUpvalue:   1,
	OpGetProperty:  1,
	OpSetProperty:  1,
	OpGetSuper:     1,
	OpEqual:        0,
	OpGreater:      0,
	OpLess:         0,
	OpAdd:          0,
	OpSubtract:     0,
	OpMultiply:     0,
	OpDivide:       0,
	OpModulo:       0,
	OpNot:          0,
	OpNegate:       0,
	OpPrint:        0,
	OpJump:         2,
	OpJumpIfFalse:  2,
	OpLoop:         2,
	OpCall:         1,
	OpInvoke:       2,
	OpSuperInvoke:  2,
	OpClosure:      -1,
	OpCloseUpvalue: 0,
	OpReturn:       0,
	OpClass:        1,
	OpInherit:      0,
	OpMethod:       1,
	OpBuildList:    1,
	OpIndexGet:     0,
	OpIndexSet:     0,
	OpFinishBegin:  0,
	OpFinishEnd:    0,
	OpAsyncBegin:   2,
	OpAsyncEnd:     0,
	OpFutureBegin:  2,
}

var opCodeNames = [numOpCodes]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpModulo:       "OP_MODULO",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
	OpBuildList:    "OP_BUILD_LIST",
	OpIndexGet:     "OP_INDEX_GET",
	OpIndexSet:     "OP_INDEX_SET",
	OpFinishBegin:  "OP_FINISH_BEGIN",
	OpFinishEnd:    "OP_FINISH_END",
	OpAsyncBegin:   "OP_ASYNC_BEGIN",
	OpAsyncEnd:     "OP_ASYNC_END",
	OpFutureBegin:  "OP_FUTURE_BEGIN",
}

// String renders the opcode's mnemonic for disassembly and error text.
func (op OpCode) String() string {
	if int(op) < len(opCodeNames) && opCodeNames[op] != "" {
		return opCodeNames[op]
	}
	return "OP_UNKNOWN"
}
