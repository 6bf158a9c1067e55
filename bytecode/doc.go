// Package bytecode defines the compiled representation the compiler emits
// and the VM executes: chunks of instructions, the opcode set, and a
// disassembler for debugging and golden-output tests.
//
// A Chunk is an append-only byte stream plus a parallel line table and a
// constant pool of NaN-boxed value.Value. Multi-byte operands are encoded
// big-endian; jump offsets are patched after the jump target is known,
// following the two-pass backpatch idiom used throughout the compiler.
package bytecode
