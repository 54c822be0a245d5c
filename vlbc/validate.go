package vlbc

import "encoding/binary"

// Validate scans code linearly from offset 0 and rejects any buffer that
// would cause an out-of-bounds decode or reference a string index at or
// beyond poolLen. Success means the scan consumed the buffer exactly.
//
// This pass runs after assembly, after decoding an external buffer, and
// after linking, before a buffer is considered runnable.
func Validate(code []byte, poolLen uint32) error {
	offset := 0
	for offset < len(code) {
		op := Opcode(code[offset])
		info, ok := opcodeInfoTable[op]
		if !ok {
			return Errorf(ErrBadBytecode, "unknown opcode 0x%02X at offset %d", byte(op), offset)
		}

		size := 1 + info.OperandLen
		if offset+size > len(code) {
			return Errorf(ErrBadBytecode, "truncated %s at offset %d: need %d bytes, have %d",
				info.Name, offset, size, len(code)-offset)
		}

		if info.StrOperand {
			idx := binary.LittleEndian.Uint32(code[offset+1:])
			if idx >= poolLen {
				return Errorf(ErrBadBytecode, "%s at offset %d references string %d, pool has %d",
					info.Name, offset, idx, poolLen)
			}
		}

		offset += size
	}
	return nil
}

// Instruction is one decoded instruction, produced by Scan.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []byte // view into the scanned buffer, OperandLen bytes
}

// StrIndex returns the string-pool index operand. Only meaningful when
// Op.HasStrOperand() is true.
func (in Instruction) StrIndex() uint32 {
	return binary.LittleEndian.Uint32(in.Operands)
}

// Int returns the i64 operand of a PUSHI.
func (in Instruction) Int() int64 {
	return int64(binary.LittleEndian.Uint64(in.Operands))
}

// FloatBits returns the raw f64 bits of a PUSHF operand.
func (in Instruction) FloatBits() uint64 {
	return binary.LittleEndian.Uint64(in.Operands)
}

// Argc returns the u8 argument count of a CALLN.
func (in Instruction) Argc() uint8 {
	return in.Operands[4]
}

// Scan decodes instructions one at a time, calling fn for each. It applies
// the same bounds checks as Validate but not the pool check, so the linker
// can walk a module while remapping indices. Scanning stops at the first
// error or when fn returns false.
func Scan(code []byte, fn func(Instruction) bool) error {
	offset := 0
	for offset < len(code) {
		op := Opcode(code[offset])
		info, ok := opcodeInfoTable[op]
		if !ok {
			return Errorf(ErrBadBytecode, "unknown opcode 0x%02X at offset %d", byte(op), offset)
		}

		size := 1 + info.OperandLen
		if offset+size > len(code) {
			return Errorf(ErrBadBytecode, "truncated %s at offset %d: need %d bytes, have %d",
				info.Name, offset, size, len(code)-offset)
		}

		if !fn(Instruction{Offset: offset, Op: op, Operands: code[offset+1 : offset+size]}) {
			return nil
		}
		offset += size
	}
	return nil
}
