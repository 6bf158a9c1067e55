package vmi

import (
	"io"

	"github.com/loxlang/loxvm/value"
)

// FrameSnapshot is one call frame captured at spawn time.
type FrameSnapshot struct {
	Closure *ObjClosure
	IP      int
	Base    int
}

// Snapshot is a point-in-time copy of a VM's call-frame stack, value
// stack, and open-upvalue list, suitable for seeding a sibling VM. It
// shares object pointers with the VM it was taken from (closures,
// instances, lists, ...) rather than deep-copying them: within one
// process, an object already on a Go heap is safe for a second VM to
// read from a second goroutine, since neither VM's own tracing
// collector can affect the other's object list.
type Snapshot struct {
	Frames       []FrameSnapshot
	Stack        []value.Value
	OpenUpvalues *ObjUpvalue
}

// Snapshot captures vm's current execution state.
func (vm *VM) Snapshot() Snapshot {
	frames := make([]FrameSnapshot, vm.frameCount)
	for i := 0; i < vm.frameCount; i++ {
		frames[i] = FrameSnapshot{Closure: vm.frames[i].Closure, IP: vm.frames[i].IP, Base: vm.frames[i].Base}
	}
	stack := make([]value.Value, vm.stackTop)
	copy(stack, vm.stack[:vm.stackTop])
	return Snapshot{Frames: frames, Stack: stack, OpenUpvalues: vm.openUpvalues}
}

// NewChildFrom returns a fresh VM with its own globals, intern table,
// and heap (the dispatcher's copyParent contract), with snap's frame
// stack and value stack replayed onto it so execution can resume
// mid-chunk.
func NewChildFrom(snap Snapshot, stdout io.Writer) *VM {
	child := NewVM(stdout)
	for i, f := range snap.Frames {
		child.frames[i] = CallFrame{Closure: f.Closure, IP: f.IP, Base: f.Base}
	}
	child.frameCount = len(snap.Frames)
	copy(child.stack[:], snap.Stack)
	child.stackTop = len(snap.Stack)
	child.openUpvalues = snap.OpenUpvalues
	return child
}

// ResumeAt sets the child's top frame instruction pointer to ip — past
// the ASYNC_BEGIN/FUTURE_BEGIN offset the dispatcher spawned it to skip
// — marks it to stop at the matching ASYNC_END rather than falling
// through into the rest of the enclosing function, and runs its
// dispatch loop.
func (vm *VM) ResumeAt(ip int) *RuntimeError {
	vm.frames[vm.frameCount-1].IP = ip
	vm.haltAtAsyncEnd = true
	return vm.run()
}

// SpawnableFuture allocates a Future tracked on vm's own heap, for a
// Dispatcher to hand back to the VM that requested a `future` spawn.
func (vm *VM) SpawnableFuture(vmSlot int) *ObjFuture {
	return vm.newFuture(vmSlot)
}
