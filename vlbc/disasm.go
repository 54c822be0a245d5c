package vlbc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable listing of the module: header,
// string pool, and code with string operands resolved.
func (m *Module) Disassemble() string {
	return m.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (m *Module) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; VLBC v%d\n", FormatVersion))

	if m.Pool.Len() > 0 {
		sb.WriteString("; Strings:\n")
		m.Pool.Each(func(e *Interned) {
			display := e.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", e.Index(), display))
		})
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(m.Code) {
		line, instrLen := m.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}
	return sb.String()
}

// DisassembleInstruction returns a human-readable representation of the
// single instruction at offset.
func (m *Module) DisassembleInstruction(offset int) string {
	line, _ := m.disassembleInstruction(offset)
	return line
}

// disassembleInstruction formats one instruction and returns its length.
// Truncated or unknown instructions render a marker with length 0.
func (m *Module) disassembleInstruction(offset int) (string, int) {
	if offset >= len(m.Code) {
		return "<end of code>", 0
	}

	op := Opcode(m.Code[offset])
	info, ok := opcodeInfoTable[op]
	if !ok {
		return fmt.Sprintf("<unknown opcode 0x%02X>", byte(op)), 0
	}
	if offset+info.OperandLen+1 > len(m.Code) {
		return fmt.Sprintf("<truncated %s>", info.Name), 0
	}

	in := Instruction{Offset: offset, Op: op, Operands: m.Code[offset+1 : offset+1+info.OperandLen]}

	switch op {
	case OpPushI:
		return fmt.Sprintf("PUSHI %d", in.Int()), 1 + info.OperandLen

	case OpPushF:
		f := math.Float64frombits(in.FloatBits())
		return fmt.Sprintf("PUSHF %s", strconv.FormatFloat(f, 'g', -1, 64)), 1 + info.OperandLen

	case OpPushS, OpStoreG, OpLoadG:
		idx := in.StrIndex()
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, m.poolComment(idx)), 1 + info.OperandLen

	case OpCallN:
		idx := in.StrIndex()
		return fmt.Sprintf("CALLN %d, %d ; %s", idx, in.Argc(), m.poolComment(idx)), 1 + info.OperandLen

	default:
		return info.Name, 1 + info.OperandLen
	}
}

// DisassembleToLines returns the code listing as a slice of lines, without
// the header or pool sections.
func (m *Module) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(m.Code) {
		line, instrLen := m.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the code section.
// Note: this iterates through all code, so it's O(n).
func (m *Module) InstructionCount() int {
	count := 0
	Scan(m.Code, func(Instruction) bool {
		count++
		return true
	})
	return count
}

func (m *Module) poolComment(idx uint32) string {
	e := m.Pool.At(idx)
	if e == nil {
		return "<out of range>"
	}
	display := e.String()
	if len(display) > 20 {
		display = display[:17] + "..."
	}
	return strconv.Quote(display)
}
