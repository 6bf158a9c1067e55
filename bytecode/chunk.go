// Package bytecode defines the compiled bytecode representation a Chunk
// carries: the instruction stream, the line-number map used for runtime
// error reporting, and the constant pool.
package bytecode

import "github.com/loxlang/loxvm/value"

// MaxConstants is the number of indexes a single-byte constant operand
// can address. The compiler reports "Too many constants in one chunk."
// once a pool already holds 255 entries, so a compiled chunk carries at
// most 255 constants.
const MaxConstants = 256

// Chunk is an append-only bytecode buffer for one function body: its
// instruction stream, a parallel line-number table (same length as
// Code), and its constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// NewChunk returns an empty chunk with the teacher's grow-by-double
// starting capacity.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 8),
		Lines:     make([]int, 0, 8),
		Constants: make([]value.Value, 0, 8),
	}
}

// Write appends one instruction byte at the given source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index.
// It does not check the pool's size against MaxConstants and does not
// allocate, so it never triggers a collection itself.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}
