package value

import "testing"

func TestObjTypeString(t *testing.T) {
	cases := map[ObjType]string{
		ObjString:      "string",
		ObjFunction:    "function",
		ObjNative:      "native",
		ObjClosure:     "closure",
		ObjUpvalue:     "upvalue",
		ObjClass:       "class",
		ObjInstance:    "instance",
		ObjBoundMethod: "bound method",
		ObjList:        "list",
		ObjFuture:      "future",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("ObjType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestFNV1a32Deterministic(t *testing.T) {
	a := FNV1a32("hello")
	b := FNV1a32("hello")
	if a != b {
		t.Fatalf("FNV1a32 not deterministic: %d != %d", a, b)
	}
	if FNV1a32("hello") == FNV1a32("world") {
		t.Fatalf("distinct strings hashed to the same value (allowed but suspicious for this pair)")
	}
}

func TestFNV1a32EmptyString(t *testing.T) {
	if got := FNV1a32(""); got != 2166136261 {
		t.Errorf("FNV1a32(\"\") = %d, want offset basis 2166136261", got)
	}
}

func TestNewObjStringRoundTrip(t *testing.T) {
	s := NewObjString("abc", FNV1a32("abc"))
	if s.Chars != "abc" {
		t.Errorf("Chars = %q, want %q", s.Chars, "abc")
	}
	if s.Type != ObjString {
		t.Errorf("Type = %v, want ObjString", s.Type)
	}

	v := s.ToValue()
	if !v.IsObject() {
		t.Fatalf("ToValue() did not produce an object Value")
	}

	back := AsObjString(v)
	if back != s {
		t.Fatalf("AsObjString round trip did not return the same pointer")
	}
}

func TestAsObjStringWrongType(t *testing.T) {
	if AsObjString(NumberVal(1)) != nil {
		t.Errorf("AsObjString(number) should be nil")
	}
	if AsObjString(Nil) != nil {
		t.Errorf("AsObjString(nil) should be nil")
	}
}

func TestObjOfNonObject(t *testing.T) {
	if ObjOf(NumberVal(3.14)) != nil {
		t.Errorf("ObjOf(number) should be nil")
	}
	if ObjOf(True) != nil {
		t.Errorf("ObjOf(true) should be nil")
	}
}

func TestAsValueObjOfRoundTrip(t *testing.T) {
	s := NewObjString("round trip", FNV1a32("round trip"))
	v := AsValue(&s.Obj)
	o := ObjOf(v)
	if o != &s.Obj {
		t.Fatalf("AsValue/ObjOf round trip did not preserve identity")
	}
	if o.Type != ObjString {
		t.Errorf("recovered Obj.Type = %v, want ObjString", o.Type)
	}
}
