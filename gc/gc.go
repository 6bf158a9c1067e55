// Package gc implements the VM's tracing garbage collector: a tricolor
// mark-sweep over the intrusive object list every heap allocation is
// linked into. It knows nothing about the concrete object variants
// (Closure, Class, Instance, ...) that live in package vmi; the VM
// supplies a Blacken callback at construction time that knows how to
// walk each variant's outgoing references, keeping this package free of
// an import cycle back to vmi.
package gc

import (
	"github.com/loxlang/loxvm/internal/logging"
	"github.com/loxlang/loxvm/table"
	"github.com/loxlang/loxvm/value"
)

var logger = logging.For("gc")

// DefaultGrowFactor is the multiplier applied to bytesAllocated to
// compute the next collection threshold, per the heap-growth strategy.
// A lox.toml can override it per Heap via Configure.
const DefaultGrowFactor = 2

// DefaultInitialNextGC is the threshold before the very first
// collection; small enough that a short-running script or test still
// exercises the collector at least once under StressGC. A lox.toml can
// override it per Heap via Configure.
const DefaultInitialNextGC = 1 << 20

// BlackenFunc walks obj's outgoing references, calling mark for each
// referenced object and markValue for each referenced Value. The VM
// supplies the concrete implementation since only it knows how to
// recover each ObjType's concrete struct from the Obj header.
type BlackenFunc func(obj *value.Obj, mark func(*value.Obj), markValue func(value.Value))

// Stats summarizes the outcome of one Collect call.
type Stats struct {
	BytesFreed     int
	ObjectsFreed   int
	BytesAllocated int
	NextGC         int
}

// Heap owns the VM-wide object list and the mark-sweep bookkeeping.
// Objects are linked at the head on Track and unlinked on Sweep; nothing
// outside this package walks the list directly.
type Heap struct {
	Blacken  BlackenFunc
	Interner *table.Interner

	StressGC bool // collect on every allocation, for GC-bug tests

	head           *value.Obj
	sizes          map[*value.Obj]int
	bytesAllocated int
	nextGC         int
	gray           []*value.Obj

	growFactor    int
	initialNextGC int
}

// NewHeap returns an empty heap using the spec's default growth
// strategy. blacken and interner must be non-nil; they are supplied
// once the VM and its interner exist.
func NewHeap(blacken BlackenFunc, interner *table.Interner) *Heap {
	return &Heap{
		Blacken:       blacken,
		Interner:      interner,
		sizes:         make(map[*value.Obj]int),
		nextGC:        DefaultInitialNextGC,
		growFactor:    DefaultGrowFactor,
		initialNextGC: DefaultInitialNextGC,
	}
}

// Configure overrides the heap's growth strategy, as loaded from a
// lox.toml, and resets the collection threshold to initialNextGC.
// Objects tracked before the call (NewVM tracks some during
// construction) stay tracked and keep counting toward BytesAllocated.
func (h *Heap) Configure(growFactor, initialNextGC int) {
	h.growFactor = growFactor
	h.initialNextGC = initialNextGC
	h.nextGC = initialNextGC
}

// BytesAllocated reports live heap bytes as tracked by Track/Sweep.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// NextGC reports the threshold that triggers the next collection.
func (h *Heap) NextGC() int { return h.nextGC }

// NeedsCollect reports whether the next allocation should trigger a
// collection, either because the heap has grown past its threshold or
// because stress mode forces a collection on every allocation.
func (h *Heap) NeedsCollect() bool {
	return h.StressGC || h.bytesAllocated > h.nextGC
}

// Track links a freshly allocated object at the head of the object list
// and charges size bytes against the heap. Every heap object (String,
// Function, Closure, ...) must be registered this way exactly once,
// immediately after allocation.
func (h *Heap) Track(obj *value.Obj, size int) {
	obj.Next = h.head
	h.head = obj
	h.sizes[obj] = size
	h.bytesAllocated += size
}

// MarkObject marks obj black-pending (adds it to the gray worklist) if
// it is not already marked. Marking is idempotent, which is what makes
// cyclic object graphs safe to trace.
func (h *Heap) MarkObject(obj *value.Obj) {
	if obj == nil || obj.Marked {
		return
	}
	obj.Marked = true
	h.gray = append(h.gray, obj)
}

// MarkValue marks v's underlying object, if v holds one. Non-object
// values (numbers, booleans, nil) require no marking.
func (h *Heap) MarkValue(v value.Value) {
	if obj := value.ObjOf(v); obj != nil {
		h.MarkObject(obj)
	}
}

// traceReferences drains the gray worklist, blackening each object by
// marking everything it references in turn, until no gray objects
// remain. The gray worklist itself is a plain Go slice growing outside
// any GC-managed allocation, avoiding the reentrancy the spec warns
// about for a self-hosted worklist.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		obj := h.gray[n]
		h.gray = h.gray[:n]
		h.Blacken(obj, h.MarkObject, h.MarkValue)
	}
}

// sweep unlinks and frees every unmarked object, resetting the mark bit
// on every survivor so the next cycle starts from white again.
func (h *Heap) sweep() (freedBytes, freedObjects int) {
	var prev *value.Obj
	obj := h.head
	for obj != nil {
		if obj.Marked {
			obj.Marked = false
			prev = obj
			obj = obj.Next
			continue
		}
		unreached := obj
		obj = obj.Next
		if prev != nil {
			prev.Next = obj
		} else {
			h.head = obj
		}
		freedBytes += h.sizes[unreached]
		delete(h.sizes, unreached)
		freedObjects++
	}
	return freedBytes, freedObjects
}

// Collect runs one full mark-sweep cycle. markRoots is called first and
// must call MarkObject/MarkValue for every VM stack slot, call-frame
// closure, open upvalue, global, and the init string handle — everything
// the VM considers a root. The compiler allocates nothing through the
// heap, so a function still under construction is never on the object
// list; once compiled, the VM keeps it on its stack until a closure
// holds it. The intern table is swept for unmarked keys before
// the object list itself, so a string about to be freed cannot remain
// visible through the interner in between.
func (h *Heap) Collect(markRoots func()) Stats {
	before := h.bytesAllocated

	markRoots()
	h.traceReferences()
	h.Interner.Table().RemoveWhite()
	freedBytes, freedObjects := h.sweep()

	h.bytesAllocated -= freedBytes
	h.nextGC = h.bytesAllocated * h.growFactor
	if h.nextGC < h.initialNextGC {
		h.nextGC = h.initialNextGC
	}

	logger.Debug("collection complete",
		"bytes_before", before,
		"bytes_after", h.bytesAllocated,
		"bytes_freed", freedBytes,
		"objects_freed", freedObjects,
		"next_gc", h.nextGC,
	)

	return Stats{
		BytesFreed:     freedBytes,
		ObjectsFreed:   freedObjects,
		BytesAllocated: h.bytesAllocated,
		NextGC:         h.nextGC,
	}
}

// Objects returns the head of the intrusive object list, for callers
// (tests, diagnostics) that need to walk every live object.
func (h *Heap) Objects() *value.Obj { return h.head }
