package bytecode

import (
	"unsafe"

	"github.com/loxlang/loxvm/value"
)

// ObjFunction is the Function heap object variant: arity, upvalue count,
// the Chunk it owns, and a name (nil for the implicit top-level script
// function).
type ObjFunction struct {
	value.Obj
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *value.ObjStringData // nil for the top-level script
}

// NewObjFunction allocates a fresh, empty function object. The chunk is
// populated by the compiler as it emits.
func NewObjFunction() *ObjFunction {
	return &ObjFunction{
		Obj:   value.Obj{Type: value.ObjFunction},
		Chunk: NewChunk(),
	}
}

// ToValue boxes the function as a NaN-boxed Value.
func (f *ObjFunction) ToValue() value.Value { return value.AsValue(&f.Obj) }

// AsObjFunction extracts an ObjFunction from a Value, or nil if v does
// not hold one.
func AsObjFunction(v value.Value) *ObjFunction {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjFunction {
		return nil
	}
	return (*ObjFunction)(unsafe.Pointer(o))
}

// DisplayName returns the function's name for stack traces, or
// "<script>" for the implicit top-level function.
func (f *ObjFunction) DisplayName() string {
	if f.Name == nil {
		return "<script>"
	}
	return f.Name.Chars
}
