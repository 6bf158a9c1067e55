package table

import "testing"

func TestInternerReturnsSamePointerForEqualContent(t *testing.T) {
	in := NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	if a != b {
		t.Fatalf("Intern should return the same pointer for equal content")
	}
}

func TestInternerDistinctContentDistinctPointers(t *testing.T) {
	in := NewInterner()
	a := in.Intern("foo")
	b := in.Intern("bar")
	if a == b {
		t.Fatalf("Intern should return distinct pointers for distinct content")
	}
}

func TestInternerPreservesChars(t *testing.T) {
	in := NewInterner()
	s := in.Intern("preserved")
	if s.Chars != "preserved" {
		t.Errorf("Chars = %q, want %q", s.Chars, "preserved")
	}
}
