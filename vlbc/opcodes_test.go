package vlbc

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("opcode 0x%02X has no name", byte(op))
		}
		if info.OperandLen < 0 || info.OperandLen > 9 {
			t.Errorf("%s: implausible operand length %d", info.Name, info.OperandLen)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	if op.IsValid() {
		t.Error("0xEE should not be a valid opcode")
	}
	if !strings.HasPrefix(op.String(), "UNKNOWN") {
		t.Errorf("String() = %q, want UNKNOWN prefix", op.String())
	}
}

func TestOperandLengths(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 0},
		{OpPushI, 8},
		{OpPushF, 8},
		{OpPushS, 4},
		{OpAdd, 0},
		{OpStoreG, 4},
		{OpLoadG, 4},
		{OpCallN, 5},
		{OpHalt, 0},
	}
	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
		if got := tt.op.InstructionLen(); got != tt.want+1 {
			t.Errorf("%s.InstructionLen() = %d, want %d", tt.op, got, tt.want+1)
		}
	}
}

func TestStrOperandFlags(t *testing.T) {
	withStr := []Opcode{OpPushS, OpStoreG, OpLoadG, OpCallN}
	for _, op := range withStr {
		if !op.HasStrOperand() {
			t.Errorf("%s should carry a string index operand", op)
		}
	}
	without := []Opcode{OpNop, OpPushI, OpPushF, OpAdd, OpEq, OpPrint, OpPop, OpHalt}
	for _, op := range without {
		if op.HasStrOperand() {
			t.Errorf("%s should not carry a string index operand", op)
		}
	}
}

func TestLookupMnemonic(t *testing.T) {
	for _, op := range AllOpcodes() {
		got, ok := LookupMnemonic(op.String())
		if !ok {
			t.Errorf("LookupMnemonic(%q) not found", op.String())
			continue
		}
		if got != op {
			t.Errorf("LookupMnemonic(%q) = %v, want %v", op.String(), got, op)
		}
	}

	// Case-insensitive
	if op, ok := LookupMnemonic("pushi"); !ok || op != OpPushI {
		t.Errorf("LookupMnemonic(\"pushi\") = %v, %v", op, ok)
	}

	if _, ok := LookupMnemonic("JMP"); ok {
		t.Error("JMP should not resolve; the instruction set has no branches")
	}
}
