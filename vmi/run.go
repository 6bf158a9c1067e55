package vmi

import (
	"encoding/binary"
	"fmt"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/value"
)

// run drives the fetch-decode-execute loop for the currently active call
// frame, switching frames in place on call/return without recursing into
// Go's own call stack.
func (vm *VM) run() *RuntimeError {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.Closure.Function.Chunk.Code[frame.IP]
		frame.IP++
		return b
	}
	readShort := func() uint16 {
		code := frame.Closure.Function.Chunk.Code
		v := binary.BigEndian.Uint16(code[frame.IP : frame.IP+2])
		frame.IP += 2
		return v
	}
	readConstant := func() value.Value {
		return frame.Closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() *value.ObjStringData {
		return value.AsObjString(readConstant())
	}

	for {
		op := bytecode.OpCode(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())

		case bytecode.OpNil:
			vm.push(value.Nil)
		case bytecode.OpTrue:
			vm.push(value.True)
		case bytecode.OpFalse:
			vm.push(value.False)
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			vm.push(vm.stack[frame.Base+int(readByte())])
		case bytecode.OpSetLocal:
			vm.stack[frame.Base+int(readByte())] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpGetUpvalue:
			vm.push(*frame.Closure.Upvalues[readByte()].Location)
		case bytecode.OpSetUpvalue:
			*frame.Closure.Upvalues[readByte()].Location = vm.peek(0)

		case bytecode.OpGetProperty:
			name := readString()
			if rerr := vm.resolveFutureInPlace(0); rerr != nil {
				return rerr
			}
			inst := asObjInstance(vm.peek(0))
			if inst == nil {
				return vm.runtimeError("Only instances have properties.")
			}
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if rerr := vm.bindMethod(inst.Class, name); rerr != nil {
				return rerr
			}
		case bytecode.OpSetProperty:
			name := readString()
			inst := asObjInstance(vm.peek(1))
			if inst == nil {
				return vm.runtimeError("Only instances have fields.")
			}
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case bytecode.OpGetSuper:
			name := readString()
			superclass := asObjClass(vm.pop())
			if rerr := vm.bindMethod(superclass, name); rerr != nil {
				return rerr
			}

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.BoolVal(value.Equal(a, b)))
		case bytecode.OpGreater:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolVal(a > b) }); rerr != nil {
				return rerr
			}
		case bytecode.OpLess:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolVal(a < b) }); rerr != nil {
				return rerr
			}
		case bytecode.OpAdd:
			if rerr := vm.add(); rerr != nil {
				return rerr
			}
		case bytecode.OpSubtract:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a - b) }); rerr != nil {
				return rerr
			}
		case bytecode.OpMultiply:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a * b) }); rerr != nil {
				return rerr
			}
		case bytecode.OpDivide:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a / b) }); rerr != nil {
				return rerr
			}
		case bytecode.OpModulo:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(mod(a, b)) }); rerr != nil {
				return rerr
			}
		case bytecode.OpNot:
			vm.push(value.BoolVal(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.NumberVal(-vm.pop().Number()))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.Stdout, stringify(vm.pop()))

		case bytecode.OpJump:
			offset := readShort()
			frame.IP += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				frame.IP += int(offset)
			}
		case bytecode.OpLoop:
			offset := readShort()
			frame.IP -= int(offset)
			if vm.Dispatcher != nil && vm.Dispatcher.Failed(vm) {
				return vm.runtimeError("thread failure: abandoning execution.")
			}

		case bytecode.OpCall:
			if vm.Dispatcher != nil && vm.Dispatcher.Failed(vm) {
				return vm.runtimeError("thread failure: abandoning execution.")
			}
			argc := int(readByte())
			if rerr := vm.callValue(vm.peek(argc), argc); rerr != nil {
				return rerr
			}
			frame = &vm.frames[vm.frameCount-1]
		case bytecode.OpInvoke:
			name := readString()
			argc := int(readByte())
			if rerr := vm.invoke(name, argc); rerr != nil {
				return rerr
			}
			frame = &vm.frames[vm.frameCount-1]
		case bytecode.OpSuperInvoke:
			name := readString()
			argc := int(readByte())
			superclass := asObjClass(vm.pop())
			if rerr := vm.invokeFromClass(superclass, name, argc); rerr != nil {
				return rerr
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := bytecode.AsObjFunction(readConstant())
			closure := vm.newClosure(fn)
			// pushed before its upvalues are filled in so a collection
			// triggered by captureUpvalue below still finds the closure
			// itself rooted.
			vm.push(closure.ToValue())
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.Base+int(index)])
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.Base])
			vm.frameCount--
			vm.stackTop = frame.Base
			if vm.frameCount == 0 {
				return nil
			}
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClass:
			vm.push(vm.newClass(readString()).ToValue())
		case bytecode.OpInherit:
			superclass := asObjClass(vm.peek(1))
			if superclass == nil {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := asObjClass(vm.peek(0))
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop()
		case bytecode.OpMethod:
			name := readString()
			method := vm.pop()
			class := asObjClass(vm.peek(0))
			class.Methods.Set(name, method)

		case bytecode.OpBuildList:
			count := int(readByte())
			items := make([]value.Value, count)
			copy(items, vm.stack[vm.stackTop-count:vm.stackTop])
			// newList's internal GC check runs before the source slots are
			// popped, so a collection mid-allocation still finds every
			// element rooted on the stack.
			list := vm.newList(items)
			vm.stackTop -= count
			vm.push(list.ToValue())
		case bytecode.OpIndexGet:
			if rerr := vm.indexGet(); rerr != nil {
				return rerr
			}
		case bytecode.OpIndexSet:
			if rerr := vm.indexSet(); rerr != nil {
				return rerr
			}

		case bytecode.OpFinishBegin:
			if vm.Dispatcher != nil {
				vm.Dispatcher.FinishBegin(vm)
			}
		case bytecode.OpFinishEnd:
			if vm.Dispatcher != nil {
				vm.Dispatcher.FinishEnd(vm)
			}

		case bytecode.OpAsyncBegin:
			offset := readShort()
			if vm.Dispatcher != nil {
				vm.Dispatcher.SpawnAsync(vm, frame.IP)
				frame.IP += int(offset)
			}
			// with no dispatcher the block runs inline: fall through
			// without jumping, so OP_ASYNC_END below becomes a no-op.
		case bytecode.OpAsyncEnd:
			// A dispatcher-spawned child stops here rather than running
			// on into the rest of the enclosing function, which its
			// parent already owns; on the spawning VM's own pass over
			// the same bytecode this is a no-op.
			if vm.haltAtAsyncEnd {
				return nil
			}

		case bytecode.OpFutureBegin:
			offset := readShort()
			if vm.Dispatcher != nil {
				future := vm.Dispatcher.SpawnFuture(vm, frame.IP)
				frame.IP += int(offset)
				vm.push(future.ToValue())
			} else {
				// no dispatcher configured: the block still runs inline
				// (fallthrough, matching async's fallback) and the
				// caller receives an already-resolved future.
				future := vm.newFuture(-1)
				future.Resolve(value.Nil)
				vm.push(future.ToValue())
			}

		default:
			return vm.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) binaryNumberOp(f func(a, b float64) value.Value) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop().Number(), vm.pop().Number()
	vm.push(f(a, b))
	return nil
}

func (vm *VM) add() *RuntimeError {
	bStr, aStr := value.AsObjString(vm.peek(0)), value.AsObjString(vm.peek(1))
	if aStr != nil && bStr != nil {
		vm.pop()
		vm.pop()
		vm.push(vm.interner.Intern(aStr.Chars + bStr.Chars).ToValue())
		return nil
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b, a := vm.pop().Number(), vm.pop().Number()
		vm.push(value.NumberVal(a + b))
		return nil
	}
	return vm.runtimeError("Operands must be two numbers or two strings.")
}

func mod(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

func (vm *VM) invokeFromClass(class *ObjClass, name *value.ObjStringData, argc int) *RuntimeError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(asObjClosure(method), argc)
}

func (vm *VM) indexGet() *RuntimeError {
	index := vm.pop()
	target := vm.pop()
	if !index.IsNumber() {
		return vm.runtimeError("Index must be a number.")
	}
	idx := int(index.Number())
	if l := asObjList(target); l != nil {
		if idx < 0 || idx >= len(l.Items) {
			return vm.runtimeError("List index out of range.")
		}
		vm.push(l.Items[idx])
		return nil
	}
	if s := value.AsObjString(target); s != nil {
		if idx < 0 || idx >= len(s.Chars) {
			return vm.runtimeError("String index out of range.")
		}
		vm.push(vm.interner.Intern(string(s.Chars[idx])).ToValue())
		return nil
	}
	return vm.runtimeError("Can only index into lists and strings.")
}

func (vm *VM) indexSet() *RuntimeError {
	value_ := vm.pop()
	index := vm.pop()
	target := vm.pop()
	if !index.IsNumber() {
		return vm.runtimeError("Index must be a number.")
	}
	l := asObjList(target)
	if l == nil {
		return vm.runtimeError("Can only assign into list indices.")
	}
	idx := int(index.Number())
	if idx < 0 || idx >= len(l.Items) {
		return vm.runtimeError("List index out of range.")
	}
	l.Items[idx] = value_
	vm.push(value_)
	return nil
}

func stringify(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return fmt.Sprintf("%t", v.Bool())
	case v.IsNumber():
		return fmt.Sprintf("%g", v.Number())
	}
	if s := value.AsObjString(v); s != nil {
		return s.Chars
	}
	if fn := bytecode.AsObjFunction(v); fn != nil {
		return "<fn " + fn.DisplayName() + ">"
	}
	obj := value.ObjOf(v)
	if obj == nil {
		return "?"
	}
	switch obj.Type {
	case value.ObjClosure:
		return "<fn " + asObjClosure(v).Function.DisplayName() + ">"
	case value.ObjNative:
		return "<native fn " + asObjNative(v).Name + ">"
	case value.ObjClass:
		return asObjClass(v).Name.Chars
	case value.ObjInstance:
		return asObjInstance(v).Class.Name.Chars + " instance"
	case value.ObjBoundMethod:
		return "<fn " + asObjBoundMethod(v).Method.Function.DisplayName() + ">"
	case value.ObjList:
		items := asObjList(v).Items
		s := "["
		for i, item := range items {
			if i > 0 {
				s += ", "
			}
			s += stringify(item)
		}
		return s + "]"
	case value.ObjFuture:
		return "<future>"
	default:
		return "?"
	}
}
