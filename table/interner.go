package table

import "github.com/loxlang/loxvm/value"

// Interner establishes string identity: two calls to Intern with equal
// content return the same *value.ObjStringData pointer, so later value
// comparisons and table probes can use pointer identity instead of
// content comparison. It wraps a Table used purely as a content-keyed
// set (values are unused).
type Interner struct {
	strings *Table

	// OnAllocate, if set, is called once for every genuinely new string
	// object (not on a cache hit), letting the VM's heap track it as a
	// live object the way every other heap allocation is tracked.
	OnAllocate func(*value.ObjStringData)
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{strings: New()}
}

// Intern returns the canonical *value.ObjStringData for s, allocating a
// new one only if no equal-content string has been interned yet.
func (in *Interner) Intern(s string) *value.ObjStringData {
	hash := value.FNV1a32(s)
	if existing := in.strings.FindString(s, hash); existing != nil {
		return existing
	}
	obj := value.NewObjString(s, hash)
	in.strings.Set(obj, value.Nil)
	if in.OnAllocate != nil {
		in.OnAllocate(obj)
	}
	return obj
}

// Table exposes the backing table so the GC can call RemoveWhite on it
// during the intern-table sweep phase.
func (in *Interner) Table() *Table { return in.strings }
