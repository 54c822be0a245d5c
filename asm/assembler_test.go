package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/vela-lang/vela/vlbc"
)

func mustAssemble(t *testing.T, src string) *vlbc.Module {
	t.Helper()
	m, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	return m
}

func TestAssembleSimpleProgram(t *testing.T) {
	m := mustAssemble(t, `
		PUSHI 2
		PUSHI 40
		ADD
		STOREG "answer"
		HALT
	`)

	want := []vlbc.Opcode{vlbc.OpPushI, vlbc.OpPushI, vlbc.OpAdd, vlbc.OpStoreG, vlbc.OpHalt}
	var got []vlbc.Opcode
	vlbc.Scan(m.Code, func(in vlbc.Instruction) bool {
		got = append(got, in.Op)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %s, want %s", i, got[i], want[i])
		}
	}
	if m.Pool.Len() != 1 || m.Pool.At(0).String() != "answer" {
		t.Errorf("pool = %d entries, want [\"answer\"]", m.Pool.Len())
	}
}

func TestAssembleDedup(t *testing.T) {
	m := mustAssemble(t, `
		PUSHS "print"
		PUSHS "print"
		CALLN "print", 1
		HALT
	`)
	if m.Pool.Len() != 1 {
		t.Errorf("pool len = %d, want 1 (three uses of \"print\" dedup)", m.Pool.Len())
	}

	// Both PUSHS and the CALLN must reference the same index.
	vlbc.Scan(m.Code, func(in vlbc.Instruction) bool {
		if in.Op.HasStrOperand() && in.StrIndex() != 0 {
			t.Errorf("%s at %d references index %d, want 0", in.Op, in.Offset, in.StrIndex())
		}
		return true
	})
}

func TestAssembleIdentifierNames(t *testing.T) {
	// PUSHS/STOREG/LOADG/CALLN accept bare identifiers as names.
	m := mustAssemble(t, `
		PUSHI 7
		STOREG x
		LOADG x
		CALLN print, 1
		HALT
	`)
	if m.Pool.Len() != 2 {
		t.Errorf("pool len = %d, want 2", m.Pool.Len())
	}
	if _, ok := m.Pool.Lookup("x"); !ok {
		t.Error("pool missing \"x\"")
	}
	if _, ok := m.Pool.Lookup("print"); !ok {
		t.Error("pool missing \"print\"")
	}
}

func TestAssembleCrossAcceptedLiterals(t *testing.T) {
	m := mustAssemble(t, "PUSHI 3.9\nPUSHF 2\nHALT\n")

	var got []vlbc.Instruction
	vlbc.Scan(m.Code, func(in vlbc.Instruction) bool {
		got = append(got, in)
		return true
	})
	if got[0].Int() != 3 {
		t.Errorf("PUSHI 3.9 truncated to %d, want 3", got[0].Int())
	}
	if got[1].FloatBits() != floatBits(2.0) {
		t.Errorf("PUSHF 2 promoted to bits %x, want bits of 2.0", got[1].FloatBits())
	}
}

func TestAssembleLabels(t *testing.T) {
	m := mustAssemble(t, `
		start:
		NOP
		mid: PUSHI 1
		HALT
	`)
	if got := m.Labels["start"]; got != 0 {
		t.Errorf("label start = %d, want 0", got)
	}
	if got := m.Labels["mid"]; got != 1 {
		t.Errorf("label mid = %d, want 1", got)
	}

	// Labels leave no trace in the emitted code.
	if m.InstructionCount() != 3 {
		t.Errorf("InstructionCount() = %d, want 3", m.InstructionCount())
	}
}

func TestAssembleDuplicateLabel(t *testing.T) {
	_, err := Assemble("x: NOP\nx: NOP\n")
	if err == nil {
		t.Fatal("duplicate label should fail")
	}
	if !strings.Contains(err.Error(), "duplicate label") {
		t.Errorf("error = %v", err)
	}
}

func TestAssembleCallNArgcRange(t *testing.T) {
	if _, err := Assemble("CALLN f, 255\nHALT\n"); err != nil {
		t.Errorf("argc 255 should assemble: %v", err)
	}
	if _, err := Assemble("CALLN f, 256\nHALT\n"); err == nil {
		t.Error("argc 256 should fail")
	}
	if _, err := Assemble("CALLN f, -1\nHALT\n"); err == nil {
		t.Error("argc -1 should fail")
	}
}

func TestAssembleCallNArgcMustBeInteger(t *testing.T) {
	// Float cross-acceptance is for PUSHI/PUSHF only; an argument count
	// never truncates.
	if _, err := Assemble("CALLN f, 2.9\nHALT\n"); !errors.Is(err, &vlbc.Error{Kind: vlbc.ErrBadArgument}) {
		t.Errorf("float argc: err = %v, want bad argument", err)
	}
	if _, err := Assemble("CALLN f, g\nHALT\n"); !errors.Is(err, &vlbc.Error{Kind: vlbc.ErrBadArgument}) {
		t.Errorf("identifier argc: err = %v, want bad argument", err)
	}
}

func TestAssembleErrorsCarryPosition(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown mnemonic", "NOP\nJUMP 3\n", 2},
		{"wrong operand type", "PUSHI \"str\"\n", 1},
		{"missing operand", "NOP\nNOP\nSTOREG\n", 3},
		{"trailing operand", "NOP 1\n", 1},
		{"bad escape", "PUSHS \"\\q\"\n", 1},
		{"unterminated string", "PUSHS \"abc\n", 1},
	}
	for _, tt := range tests {
		_, err := Assemble(tt.src)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var verr *vlbc.Error
		if !errors.As(err, &verr) {
			t.Errorf("%s: error %T is not *vlbc.Error", tt.name, err)
			continue
		}
		if verr.Line != tt.line {
			t.Errorf("%s: error at line %d, want %d (%v)", tt.name, verr.Line, tt.line, err)
		}
	}
}

func TestAssembleEmptySource(t *testing.T) {
	if _, err := Assemble(""); !errors.Is(err, &vlbc.Error{Kind: vlbc.ErrBadArgument}) {
		t.Errorf("empty source error = %v, want BadArgument", err)
	}
}

func TestAssembleAllOrNothing(t *testing.T) {
	// An error after valid lines must not return a partial module.
	m, err := Assemble("PUSHI 1\nBOGUS\n")
	if err == nil {
		t.Fatal("expected error")
	}
	if m != nil {
		t.Error("failed assembly must return nil module")
	}
}

func TestAssembleRoundTripThroughDisassembler(t *testing.T) {
	src := `
		PUSHI 2
		PUSHF 1.5
		ADD
		PUSHS "msg"
		PRINT
		PUSHI 7
		STOREG "x"
		LOADG "x"
		CALLN "print", 1
		POP
		HALT
	`
	m := mustAssemble(t, src)
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := vlbc.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// The opcode/operand sequence survives the container round trip with
	// string content (not necessarily numbering) intact.
	var orig, back []string
	vlbc.Scan(m.Code, func(in vlbc.Instruction) bool {
		orig = append(orig, describe(m, in))
		return true
	})
	vlbc.Scan(decoded.Code, func(in vlbc.Instruction) bool {
		back = append(back, describe(decoded, in))
		return true
	})
	if len(orig) != len(back) {
		t.Fatalf("instruction counts differ: %d vs %d", len(orig), len(back))
	}
	for i := range orig {
		if orig[i] != back[i] {
			t.Errorf("instruction %d: %q vs %q", i, orig[i], back[i])
		}
	}
}

// describe renders an instruction with string operands resolved to content,
// so comparisons are index-renumbering-proof.
func describe(m *vlbc.Module, in vlbc.Instruction) string {
	if in.Op.HasStrOperand() {
		return in.Op.String() + " " + m.Pool.At(in.StrIndex()).String()
	}
	return m.DisassembleInstruction(in.Offset)
}

func floatBits(f float64) uint64 {
	var in vlbc.Instruction
	m := vlbc.NewModule()
	m.EmitPushFloat(f)
	vlbc.Scan(m.Code, func(i vlbc.Instruction) bool { in = i; return false })
	return in.FloatBits()
}
