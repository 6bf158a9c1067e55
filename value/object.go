package value

import "unsafe"

// ObjType discriminates the heap object variants. Polymorphism over
// objects (mark, free, stringify) is a flat switch on this tag rather
// than virtual dispatch.
type ObjType byte

const (
	ObjString ObjType = iota
	ObjFunction
	ObjNative
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
	ObjList
	ObjFuture
)

func (t ObjType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound method"
	case ObjList:
		return "list"
	case ObjFuture:
		return "future"
	default:
		return "?"
	}
}

// Obj is the header every heap object embeds as its first field. Every
// heap-allocated value in the VM shares this layout: a variant tag, a GC
// mark bit, and the intrusive link to the next object in the VM-wide
// allocation list (see gc.Heap).
type Obj struct {
	Type   ObjType
	Marked bool
	Next   *Obj
}

// AsValue boxes an object header's owning pointer into a NaN-boxed
// Value. Callers pass the address of their own struct's embedded Obj;
// since Obj is always the first field, the address is identical for
// both, which is what lets ObjOf below convert back.
func AsValue(obj *Obj) Value {
	return FromObjectPtr(unsafe.Pointer(obj))
}

// ObjOf extracts the Obj header from a Value. Returns nil if v does not
// hold an object.
func ObjOf(v Value) *Obj {
	if !v.IsObject() {
		return nil
	}
	return (*Obj)(v.ObjectPtr())
}

// ObjStringData is the String object variant: raw bytes and the primary
// hash used by the interning table. UTF-8-agnostic: content is treated
// as raw bytes.
type ObjStringData struct {
	Obj
	Chars string
	Hash  uint32
}

// NewObjString wraps a Go string as a heap String object. It does not by
// itself intern the string; callers that need interning identity go
// through table.Interner.
func NewObjString(s string, hash uint32) *ObjStringData {
	return &ObjStringData{Obj: Obj{Type: ObjString}, Chars: s, Hash: hash}
}

// ToValue boxes the string object as a NaN-boxed Value.
func (s *ObjStringData) ToValue() Value { return AsValue(&s.Obj) }

// AsObjString extracts an ObjStringData from a Value holding a String
// object. Returns nil for any other kind of value.
func AsObjString(v Value) *ObjStringData {
	o := ObjOf(v)
	if o == nil || o.Type != ObjString {
		return nil
	}
	return (*ObjStringData)(unsafe.Pointer(o))
}

// FNV1a32 computes the 32-bit FNV-1a hash the interning table and the
// hash table both key on.
func FNV1a32(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
