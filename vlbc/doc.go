// Package vlbc defines the VLBC binary module format and the pieces shared
// by every stage of the toolchain: the opcode table, the string pool, the
// container codec, the streaming validator, and the disassembler.
//
// The format is designed for:
//   - Compact representation (one opcode byte plus a fixed operand layout)
//   - Fast decoding (fixed-width operands, little-endian throughout)
//   - Easy transport (a module is a single self-describing byte buffer)
//
// # Container Layout
//
// A VLBC buffer encodes exactly one module:
//
//	magic:    4 bytes, ASCII "VLBC"
//	version:  1 byte (currently 1)
//	kcount:   u32                            -- number of pool strings
//	repeat kcount: { len:u32, bytes[len] }   -- raw bytes, NULs allowed
//	code_len: u32
//	code:     bytes[code_len]
//
// Every length field is bounds-checked against the remaining buffer before
// the corresponding read; a truncated or mis-versioned buffer fails with
// ErrBadBytecode and commits nothing.
//
// # String Pool
//
// The pool is a deduplicated, insertion-ordered table mapping byte strings
// to dense u32 indices. Indices are stable for the life of the pool and are
// the shared identity for string literals, global variable names, and
// native function names: global "x" and native "x" occupy the same slot.
//
// # Validation
//
// Validate performs a single linear scan over a code buffer, rejecting any
// instruction that would decode past the end of the buffer and any string
// index operand that is not below the pool length. The assembler, the
// decoder, and the linker all run this pass before a buffer is considered
// runnable.
//
// There is no branch opcode in the instruction set, so control flow through
// a validated buffer is strictly linear.
package vlbc
