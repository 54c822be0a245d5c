package vlbc

import (
	"fmt"
	"strings"
)

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Misc (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation

	// ========================================================================
	// Pushes (0x10-0x1F)
	// ========================================================================

	OpPushI Opcode = 0x10 // Push integer: OpPushI <value:i64>
	OpPushF Opcode = 0x11 // Push float: OpPushF <value:f64>
	OpPushS Opcode = 0x12 // Push interned string: OpPushS <index:u32>

	// ========================================================================
	// Arithmetic (0x20-0x2F)
	// ========================================================================

	OpAdd Opcode = 0x20 // Pop two, push sum
	OpSub Opcode = 0x21 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x22 // Pop two, push product
	OpDiv Opcode = 0x23 // Pop two, push quotient

	// ========================================================================
	// Comparison (0x30-0x3F)
	// ========================================================================

	OpEq  Opcode = 0x30 // Pop two, push true if equal
	OpNeq Opcode = 0x31 // Pop two, push true if not equal
	OpLt  Opcode = 0x32 // Pop two, push true if a < b
	OpGt  Opcode = 0x33 // Pop two, push true if a > b
	OpLe  Opcode = 0x34 // Pop two, push true if a <= b
	OpGe  Opcode = 0x35 // Pop two, push true if a >= b

	// ========================================================================
	// Stack effects (0x40-0x4F)
	// ========================================================================

	OpPrint Opcode = 0x40 // Pop top, format to the output sink
	OpPop   Opcode = 0x41 // Discard top

	// ========================================================================
	// Globals (0x50-0x5F)
	// ========================================================================

	OpStoreG Opcode = 0x50 // Pop value, store into globals: OpStoreG <name:u32>
	OpLoadG  Opcode = 0x51 // Push globals value (Nil if unset): OpLoadG <name:u32>

	// ========================================================================
	// Calls (0x60-0x6F)
	// ========================================================================

	OpCallN Opcode = 0x60 // Call native: OpCallN <name:u32> <argc:u8>

	// ========================================================================
	// Termination
	// ========================================================================

	OpHalt Opcode = 0xFF // Terminate execution gracefully
)

// OpcodeInfo provides metadata about each opcode for encoding, validation,
// and disassembly.
type OpcodeInfo struct {
	Name       string // Assembler mnemonic
	OperandLen int    // Number of operand bytes following the opcode
	StackPop   int    // Values popped from stack (-1 = variable)
	StackPush  int    // Values pushed to stack
	StrOperand bool   // First 4 operand bytes are a string-pool index
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0, 0, false},

	OpPushI: {"PUSHI", 8, 0, 1, false},
	OpPushF: {"PUSHF", 8, 0, 1, false},
	OpPushS: {"PUSHS", 4, 0, 1, true},

	OpAdd: {"ADD", 0, 2, 1, false},
	OpSub: {"SUB", 0, 2, 1, false},
	OpMul: {"MUL", 0, 2, 1, false},
	OpDiv: {"DIV", 0, 2, 1, false},

	OpEq:  {"EQ", 0, 2, 1, false},
	OpNeq: {"NEQ", 0, 2, 1, false},
	OpLt:  {"LT", 0, 2, 1, false},
	OpGt:  {"GT", 0, 2, 1, false},
	OpLe:  {"LE", 0, 2, 1, false},
	OpGe:  {"GE", 0, 2, 1, false},

	OpPrint: {"PRINT", 0, 1, 0, false},
	OpPop:   {"POP", 0, 1, 0, false},

	OpStoreG: {"STOREG", 4, 1, 0, true},
	OpLoadG:  {"LOADG", 4, 0, 1, true},

	OpCallN: {"CALLN", 5, -1, 1, true},

	OpHalt: {"HALT", 0, 0, 0, false},
}

// mnemonicTable maps assembler mnemonics to opcodes.
var mnemonicTable = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupMnemonic resolves an assembler mnemonic (case-insensitive) to its
// opcode. The second result is false for unknown mnemonics.
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonicTable[strings.ToUpper(name)]
	return op, ok
}

// IsValid reports whether the opcode is defined.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the assembler mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// HasStrOperand reports whether the instruction carries a string-pool index
// in its first four operand bytes.
func (op Opcode) HasStrOperand() bool {
	return GetOpcodeInfo(op).StrOperand
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
