package bytecode

import (
	"testing"

	"github.com/loxlang/loxvm/value"
)

func TestNewChunk(t *testing.T) {
	c := NewChunk()
	if len(c.Code) != 0 {
		t.Fatalf("new chunk has %d code bytes, want 0", len(c.Code))
	}
	if len(c.Lines) != 0 {
		t.Fatalf("new chunk has %d lines, want 0", len(c.Lines))
	}
	if len(c.Constants) != 0 {
		t.Fatalf("new chunk has %d constants, want 0", len(c.Constants))
	}
}

func TestChunkWrite(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpReturn), 1)
	c.Write(byte(OpPrint), 2)

	if len(c.Code) != 3 {
		t.Fatalf("len(Code) = %d, want 3", len(c.Code))
	}
	if len(c.Lines) != len(c.Code) {
		t.Fatalf("Lines and Code lengths diverged: %d vs %d", len(c.Lines), len(c.Code))
	}
	wantLines := []int{1, 1, 2}
	for i, want := range wantLines {
		if c.Lines[i] != want {
			t.Errorf("Lines[%d] = %d, want %d", i, c.Lines[i], want)
		}
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk()
	i0 := c.AddConstant(value.NumberVal(1))
	i1 := c.AddConstant(value.NumberVal(2))

	if i0 != 0 || i1 != 1 {
		t.Fatalf("AddConstant indices = %d, %d, want 0, 1", i0, i1)
	}
	if c.Constants[i0].Number() != 1 {
		t.Errorf("Constants[0] = %v, want 1", c.Constants[i0])
	}
	if c.Constants[i1].Number() != 2 {
		t.Errorf("Constants[1] = %v, want 2", c.Constants[i1])
	}
}
