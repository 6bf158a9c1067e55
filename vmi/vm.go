package vmi

import (
	"bufio"
	"io"
	"unsafe"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/compiler"
	"github.com/loxlang/loxvm/gc"
	"github.com/loxlang/loxvm/table"
	"github.com/loxlang/loxvm/value"
)

// FramesMax bounds the call-frame stack; a 65th active frame is a
// runtime stack-overflow error.
const FramesMax = 64

// StackMax is the fixed value-stack capacity: FramesMax frames of 256
// slots apiece. The stack is a fixed array, not a growable slice, so
// that *value.Value pointers handed out to open upvalues never dangle
// across a reallocation.
const StackMax = FramesMax * 256

// InterpretResult mirrors the reference's tri-state completion status.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// Dispatcher spawns and joins the sibling VMs backing `async`, `finish`,
// and `future`. VM depends only on this interface, not on package
// dispatch, keeping the natural dependency order (VM below Dispatcher)
// intact; a nil Dispatcher makes those constructs run inline on the
// current VM, which is sufficient for single-threaded scripts and tests.
type Dispatcher interface {
	// SpawnAsync clones vm and resumes the clone's top frame at
	// resumeIP, running it to completion on its own goroutine, grouped
	// under vm's current finish nesting level.
	SpawnAsync(vm *VM, resumeIP int)
	// SpawnFuture clones vm the same way but returns a Future the
	// parent can block on instead of running fire-and-forget.
	SpawnFuture(vm *VM, resumeIP int) *ObjFuture
	// FinishBegin opens a new join level for vm.
	FinishBegin(vm *VM)
	// FinishEnd blocks until every child spawned at vm's current join
	// level has completed, then closes that level.
	FinishEnd(vm *VM)
	// Failed reports whether a sibling under this dispatcher has failed,
	// so vm's own dispatch loop can abandon execution at its next poll
	// point.
	Failed(vm *VM) bool
}

// VM is one interpreter instance: its own value stack, call frames,
// globals, string interner, and heap. Sibling VMs spawned by the
// dispatcher never share any of these.
type VM struct {
	frames     [FramesMax]CallFrame
	frameCount int

	stack    [StackMax]value.Value
	stackTop int

	globals  *table.Table
	interner *table.Interner
	heap     *gc.Heap

	openUpvalues *ObjUpvalue
	initString   *value.ObjStringData

	Stdout     io.Writer
	Stdin      io.Reader
	stdin      *bufio.Reader
	Dispatcher Dispatcher

	// StressGC forces a collection before every allocation that goes
	// through maybeCollect, exposed for GC-focused tests.
	StressGC bool

	// haltAtAsyncEnd is set by ResumeAt on a dispatcher-spawned child so
	// its dispatch loop stops at the ASYNC_END matching the block it was
	// spawned to run, instead of falling through into the rest of the
	// enclosing function (which the parent VM already owns).
	haltAtAsyncEnd bool
}

// NewVM returns a freshly initialized VM writing `print` output to
// stdout and with the native registry installed.
func NewVM(stdout io.Writer) *VM {
	vm := &VM{Stdout: stdout}
	vm.globals = table.New()
	vm.interner = table.NewInterner()
	vm.interner.OnAllocate = func(s *value.ObjStringData) {
		vm.heap.Track(&s.Obj, len(s.Chars)+32)
	}
	vm.heap = gc.NewHeap(blacken, vm.interner)
	vm.initString = vm.interner.Intern("init")
	vm.registerNatives()
	return vm
}

// Interner exposes the VM's string interner so the compiler can share
// interning identity with the running VM.
func (vm *VM) Interner() *table.Interner { return vm.interner }

// Heap exposes the VM's heap for diagnostics and tests.
func (vm *VM) Heap() *gc.Heap { return vm.heap }

// Interpret compiles and runs source to completion.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := compiler.Compile(source, vm.interner)
	if err != nil {
		return InterpretCompileError, err
	}
	vm.trackFunction(fn)

	// fn stays on the stack while its closure is allocated, since that
	// allocation may run a collection.
	vm.push(fn.ToValue())
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(closure.ToValue())
	if rerr := vm.callValue(closure.ToValue(), 0); rerr != nil {
		return InterpretRuntimeError, rerr
	}

	if rerr := vm.run(); rerr != nil {
		return InterpretRuntimeError, rerr
	}
	return InterpretOK, nil
}

// trackFunction registers fn and, recursively, every nested function
// living in its constant pool with the heap's object list. The compiler
// itself has no heap access (it sits below vmi in the dependency order),
// so the freshly compiled function graph is untracked until the VM
// claims it here, once, right after a successful compile.
func (vm *VM) trackFunction(fn *bytecode.ObjFunction) {
	vm.heap.Track(&fn.Obj, 64+len(fn.Chunk.Code))
	for _, c := range fn.Chunk.Constants {
		if nested := bytecode.AsObjFunction(c); nested != nil {
			vm.trackFunction(nested)
		}
	}
}

// --- stack primitives ---------------------------------------------------

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// --- allocation helpers (tracked on the heap) ----------------------------

func (vm *VM) maybeCollect() {
	if vm.StressGC {
		vm.heap.StressGC = true
	}
	if vm.heap.NeedsCollect() {
		vm.heap.Collect(vm.markRoots)
	}
}

func (vm *VM) newClosure(fn *bytecode.ObjFunction) *ObjClosure {
	vm.maybeCollect()
	c := &ObjClosure{
		Obj:      value.Obj{Type: value.ObjClosure},
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
	vm.heap.Track(&c.Obj, 32+8*len(c.Upvalues))
	return c
}

func (vm *VM) newUpvalue(slot *value.Value) *ObjUpvalue {
	vm.maybeCollect()
	uv := &ObjUpvalue{Obj: value.Obj{Type: value.ObjUpvalue}, Location: slot}
	vm.heap.Track(&uv.Obj, 32)
	return uv
}

func (vm *VM) newClass(name *value.ObjStringData) *ObjClass {
	vm.maybeCollect()
	c := &ObjClass{Obj: value.Obj{Type: value.ObjClass}, Name: name, Methods: table.New()}
	vm.heap.Track(&c.Obj, 48)
	return c
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	vm.maybeCollect()
	i := &ObjInstance{Obj: value.Obj{Type: value.ObjInstance}, Class: class, Fields: table.New()}
	vm.heap.Track(&i.Obj, 48)
	return i
}

func (vm *VM) newBoundMethod(receiver value.Value, method *ObjClosure) *ObjBoundMethod {
	vm.maybeCollect()
	b := &ObjBoundMethod{Obj: value.Obj{Type: value.ObjBoundMethod}, Receiver: receiver, Method: method}
	vm.heap.Track(&b.Obj, 32)
	return b
}

func (vm *VM) newList(items []value.Value) *ObjList {
	vm.maybeCollect()
	l := &ObjList{Obj: value.Obj{Type: value.ObjList}, Items: items}
	vm.heap.Track(&l.Obj, 24+8*len(items))
	return l
}

func (vm *VM) newNative(name string, arity int, fn NativeFn) *ObjNative {
	n := &ObjNative{Obj: value.Obj{Type: value.ObjNative}, Name: name, Arity: arity, Fn: fn}
	vm.heap.Track(&n.Obj, 32)
	return n
}

func (vm *VM) newFuture(vmSlot int) *ObjFuture {
	f := NewObjFuture(vmSlot)
	vm.heap.Track(&f.Obj, 32)
	return f
}

// --- root marking ---------------------------------------------------------

// markRoots marks every value on the stack, every active frame's
// closure, every open upvalue, every global, and the init string
// handle. Passed to gc.Heap.Collect.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.heap.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.heap.MarkObject(&vm.frames[i].Closure.Obj)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		vm.heap.MarkObject(&uv.Obj)
	}
	vm.globals.MarkReachable(vm.heap.MarkObject, vm.heap.MarkValue)
	vm.heap.MarkObject(&vm.initString.Obj)
}

// --- calling convention ---------------------------------------------------

func (vm *VM) callValue(callee value.Value, argc int) *RuntimeError {
	if obj := value.ObjOf(callee); obj != nil {
		switch obj.Type {
		case value.ObjClosure:
			return vm.call(asObjClosure(callee), argc)
		case value.ObjNative:
			return vm.callNative(asObjNative(callee), argc)
		case value.ObjClass:
			return vm.instantiate(asObjClass(callee), argc)
		case value.ObjBoundMethod:
			bound := asObjBoundMethod(callee)
			vm.stack[vm.stackTop-argc-1] = bound.Receiver
			return vm.call(bound.Method, argc)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) call(closure *ObjClosure, argc int) *RuntimeError {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.Closure = closure
	frame.IP = 0
	frame.Base = vm.stackTop - argc - 1
	return nil
}

func (vm *VM) callNative(native *ObjNative, argc int) *RuntimeError {
	if native.Arity >= 0 && argc != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argc)
	}
	args := make([]value.Value, argc)
	copy(args, vm.stack[vm.stackTop-argc:vm.stackTop])
	result, err := native.Fn(vm, args)
	vm.stackTop -= argc + 1
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.push(result)
	return nil
}

func (vm *VM) instantiate(class *ObjClass, argc int) *RuntimeError {
	inst := vm.newInstance(class)
	vm.stack[vm.stackTop-argc-1] = inst.ToValue()
	if initializer, ok := class.Methods.Get(vm.initString); ok {
		return vm.call(asObjClosure(initializer), argc)
	}
	if argc != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argc)
	}
	return nil
}

func (vm *VM) resolveFutureInPlace(distance int) *RuntimeError {
	idx := vm.stackTop - 1 - distance
	fut := asObjFuture(vm.stack[idx])
	if fut == nil {
		return nil
	}
	v, err := fut.Await()
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stack[idx] = v
	return nil
}

func (vm *VM) invoke(name *value.ObjStringData, argc int) *RuntimeError {
	if rerr := vm.resolveFutureInPlace(argc); rerr != nil {
		return rerr
	}
	receiver := vm.peek(argc)
	inst := asObjInstance(receiver)
	if inst == nil {
		return vm.runtimeError("Only instances have methods.")
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = field
		return vm.callValue(field, argc)
	}
	method, ok := inst.Class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(asObjClosure(method), argc)
}

func (vm *VM) bindMethod(class *ObjClass, name *value.ObjStringData) *RuntimeError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), asObjClosure(method))
	vm.pop()
	vm.push(bound.ToValue())
	return nil
}

// --- upvalues ---------------------------------------------------------

func uintptrOf(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }

func (vm *VM) captureUpvalue(slot *value.Value) *ObjUpvalue {
	var prev *ObjUpvalue
	uv := vm.openUpvalues
	for uv != nil && uintptrOf(uv.Location) > uintptrOf(slot) {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Location == slot {
		return uv
	}

	created := vm.newUpvalue(slot)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

func (vm *VM) closeUpvalues(last *value.Value) {
	for vm.openUpvalues != nil && uintptrOf(vm.openUpvalues.Location) >= uintptrOf(last) {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
	}
}
