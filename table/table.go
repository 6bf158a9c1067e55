// Package table implements the open-addressing hash table used both for
// interning strings and for globals, instance fields, and class method
// tables. Keys are always interned *value.ObjStringData pointers, so
// probing can compare by pointer identity; the interner itself uses
// findString to compare by content before an identity exists.
package table

import (
	"github.com/loxlang/loxvm/value"
)

const maxLoadFactor = 0.75

type entry struct {
	key   *value.ObjStringData // nil = never used; tombstone marked separately
	value value.Value
	// tombstone distinguishes a deleted slot (which must keep probing past
	// it) from a slot that has never been used (which stops the probe).
	tombstone bool
}

// Table is an open-addressing, linear-probing hash table with tombstone
// deletion and power-of-two capacity growth.
type Table struct {
	count   int // live entries + tombstones, drives the load-factor check
	entries []entry
}

// New returns an empty table. Capacity is allocated lazily on first Set,
// matching the teacher's grow-on-demand idiom.
func New() *Table {
	return &Table{}
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.key != nil && !e.tombstone {
			n++
		}
	}
	return n
}

// Get looks up key by pointer identity and reports whether it was found.
func (t *Table) Get(key *value.ObjStringData) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return value.Nil, false
	}
	return e.value, true
}

// Set inserts or overwrites key's value, growing the table first if the
// load factor would exceed 0.75. Reports whether key was newly inserted
// (as opposed to overwriting an existing live entry).
func (t *Table) Set(key *value.ObjStringData, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoadFactor {
		t.grow()
	}
	e := t.findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && !e.tombstone {
		t.count++
	}
	e.key = key
	e.value = v
	e.tombstone = false
	return isNewKey
}

// Delete tombstones key's slot so later probes keep scanning past it.
// Reports whether key was present.
func (t *Table) Delete(key *value.ObjStringData) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.tombstone = true
	return true
}

// AddAll copies every live entry of other into t.
func (t *Table) AddAll(other *Table) {
	for i := range other.entries {
		e := &other.entries[i]
		if e.key != nil && !e.tombstone {
			t.Set(e.key, e.value)
		}
	}
}

// FindString compares candidate keys by content, hash, and length rather
// than pointer identity, and is what the interner uses to decide whether
// a string of this content already exists on the heap.
func (t *Table) FindString(chars string, hash uint32) *value.ObjStringData {
	if len(t.entries) == 0 {
		return nil
	}
	cap := uint32(len(t.entries))
	index := hash & (cap - 1)
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & (cap - 1)
	}
}

// MarkReachable marks every live key and value as GC roots. Called by the
// collector for the globals table (and any other Table treated as a root
// set); the intern table is handled separately since its keys are purged
// by RemoveWhite rather than kept alive.
func (t *Table) MarkReachable(mark func(*value.Obj), markValue func(value.Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil || e.tombstone {
			continue
		}
		mark(&e.key.Obj)
		markValue(e.value)
	}
}

// RemoveWhite deletes every entry whose key is unmarked. The GC calls
// this on the intern table before sweeping objects, so a string about to
// be freed cannot remain reachable through the interner afterward.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.Marked {
			e.key = nil
			e.tombstone = true
		}
	}
}

// findEntry scans from key's home bucket, returning the first tombstone
// seen on a miss (so it can be reused) unless the key is found first, in
// which case the exact slot is returned.
func (t *Table) findEntry(entries []entry, key *value.ObjStringData) *entry {
	cap := uint32(len(entries))
	index := key.Hash & (cap - 1)
	var tombstone *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if !e.tombstone {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) & (cap - 1)
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dst := t.findEntry(newEntries, e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
	t.entries = newEntries
}
