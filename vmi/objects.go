// Package vmi implements the stack-based bytecode VM: the remaining heap
// object variants not owned by package value or package bytecode, the
// call-frame stack, the dispatch loop, and the native-function registry.
package vmi

import (
	"unsafe"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/table"
	"github.com/loxlang/loxvm/value"
)

// ObjNative wraps a host Go function callable from Lox code.
type ObjNative struct {
	value.Obj
	Name  string
	Arity int // -1 means variadic / not arity-checked by the dispatcher
	Fn    NativeFn
}

// NativeFn is a native callable's Go implementation. It receives the VM
// (for allocation and error context) and its already-evaluated
// arguments, and returns a value or a runtime error.
type NativeFn func(vm *VM, args []value.Value) (value.Value, error)

func (n *ObjNative) ToValue() value.Value { return value.AsValue(&n.Obj) }

func asObjNative(v value.Value) *ObjNative {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjNative {
		return nil
	}
	return (*ObjNative)(unsafe.Pointer(o))
}

// ObjUpvalue is either open (Location aliases a live stack slot) or
// closed (Location aliases its own Closed field). Open upvalues form an
// intrusive, descending-by-address linked list off the VM.
type ObjUpvalue struct {
	value.Obj
	Location *value.Value
	Closed   value.Value
	Next     *ObjUpvalue
}

func (u *ObjUpvalue) ToValue() value.Value { return value.AsValue(&u.Obj) }

// ObjClosure pairs a compiled function with the upvalues it captured at
// creation time.
type ObjClosure struct {
	value.Obj
	Function *bytecode.ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) ToValue() value.Value { return value.AsValue(&c.Obj) }

func asObjClosure(v value.Value) *ObjClosure {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjClosure {
		return nil
	}
	return (*ObjClosure)(unsafe.Pointer(o))
}

// ObjClass is a class's name and its method table (name -> *ObjClosure,
// boxed as a Value).
type ObjClass struct {
	value.Obj
	Name    *value.ObjStringData
	Methods *table.Table
}

func (c *ObjClass) ToValue() value.Value { return value.AsValue(&c.Obj) }

func asObjClass(v value.Value) *ObjClass {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjClass {
		return nil
	}
	return (*ObjClass)(unsafe.Pointer(o))
}

// ObjInstance is an instance of a class: its class reference plus a
// field table (name -> Value).
type ObjInstance struct {
	value.Obj
	Class  *ObjClass
	Fields *table.Table
}

func (i *ObjInstance) ToValue() value.Value { return value.AsValue(&i.Obj) }

func asObjInstance(v value.Value) *ObjInstance {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjInstance {
		return nil
	}
	return (*ObjInstance)(unsafe.Pointer(o))
}

// ObjBoundMethod pairs a receiver with the closure invoke should call
// against it, produced whenever a method is read off an instance rather
// than immediately invoked.
type ObjBoundMethod struct {
	value.Obj
	Receiver value.Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) ToValue() value.Value { return value.AsValue(&b.Obj) }

func asObjBoundMethod(v value.Value) *ObjBoundMethod {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjBoundMethod {
		return nil
	}
	return (*ObjBoundMethod)(unsafe.Pointer(o))
}

// ObjList is a growable array of Value, backing list literals and the
// len/append/delete natives.
type ObjList struct {
	value.Obj
	Items []value.Value
}

func (l *ObjList) ToValue() value.Value { return value.AsValue(&l.Obj) }

func asObjList(v value.Value) *ObjList {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjList {
		return nil
	}
	return (*ObjList)(unsafe.Pointer(o))
}

// ObjFuture is a handle to a value being computed by a sibling VM
// (spawned by a `future { ... }` expression). Reading a property or
// invoking a method on a Future blocks the caller until Resolve or Fail
// is called from the child's thread.
type ObjFuture struct {
	value.Obj
	VMSlot int

	done   chan struct{}
	result value.Value
	err    error
}

// NewObjFuture returns an unresolved future for the sibling running in
// vmSlot.
func NewObjFuture(vmSlot int) *ObjFuture {
	return &ObjFuture{Obj: value.Obj{Type: value.ObjFuture}, VMSlot: vmSlot, done: make(chan struct{})}
}

func (f *ObjFuture) ToValue() value.Value { return value.AsValue(&f.Obj) }

func asObjFuture(v value.Value) *ObjFuture {
	o := value.ObjOf(v)
	if o == nil || o.Type != value.ObjFuture {
		return nil
	}
	return (*ObjFuture)(unsafe.Pointer(o))
}

// Resolve completes the future with a successful result. Called exactly
// once, from the sibling VM's thread.
func (f *ObjFuture) Resolve(v value.Value) {
	f.result = v
	close(f.done)
}

// Fail completes the future with a runtime error. Called exactly once,
// from the sibling VM's thread.
func (f *ObjFuture) Fail(err error) {
	f.err = err
	close(f.done)
}

// Await blocks until the future resolves, then returns its value or
// error.
func (f *ObjFuture) Await() (value.Value, error) {
	<-f.done
	return f.result, f.err
}

// blacken walks obj's outgoing references per its concrete variant,
// matching the per-variant reference lists in the memory manager's mark
// phase. Passed to gc.NewHeap as the Blacken callback.
func blacken(obj *value.Obj, mark func(*value.Obj), markValue func(value.Value)) {
	switch obj.Type {
	case value.ObjString, value.ObjNative:
		// no outgoing references
	case value.ObjFunction:
		fn := (*bytecode.ObjFunction)(unsafe.Pointer(obj))
		if fn.Name != nil {
			mark(&fn.Name.Obj)
		}
		for _, c := range fn.Chunk.Constants {
			markValue(c)
		}
	case value.ObjClosure:
		c := (*ObjClosure)(unsafe.Pointer(obj))
		mark(&c.Function.Obj)
		for _, uv := range c.Upvalues {
			if uv != nil {
				mark(&uv.Obj)
			}
		}
	case value.ObjUpvalue:
		uv := (*ObjUpvalue)(unsafe.Pointer(obj))
		if uv.Location != nil {
			markValue(*uv.Location)
		}
	case value.ObjClass:
		c := (*ObjClass)(unsafe.Pointer(obj))
		mark(&c.Name.Obj)
		c.Methods.MarkReachable(mark, markValue)
	case value.ObjInstance:
		i := (*ObjInstance)(unsafe.Pointer(obj))
		mark(&i.Class.Obj)
		i.Fields.MarkReachable(mark, markValue)
	case value.ObjBoundMethod:
		b := (*ObjBoundMethod)(unsafe.Pointer(obj))
		markValue(b.Receiver)
		mark(&b.Method.Obj)
	case value.ObjList:
		l := (*ObjList)(unsafe.Pointer(obj))
		for _, item := range l.Items {
			markValue(item)
		}
	case value.ObjFuture:
		// resolved value is owned by the sibling VM's heap; nothing to
		// trace here.
	}
}
