package vlbc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildTestModule assembles a small module by hand: push "hi", store into
// global "x", call native "print" with one arg, halt.
func buildTestModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule()
	if _, err := m.EmitStr(OpPushS, "hi"); err != nil {
		t.Fatalf("EmitStr: %v", err)
	}
	m.EmitPushInt(42)
	if _, err := m.EmitStr(OpStoreG, "x"); err != nil {
		t.Fatalf("EmitStr: %v", err)
	}
	if _, err := m.EmitCallN("print", 1); err != nil {
		t.Fatalf("EmitCallN: %v", err)
	}
	m.Emit(OpHalt)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m
}

// encode serializes m, failing the test on error.
func encode(t *testing.T, m *Module) []byte {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := buildTestModule(t)
	data := encode(t, m)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Code, m.Code) {
		t.Errorf("code mismatch\n got %x\nwant %x", got.Code, m.Code)
	}
	if got.Pool.Len() != m.Pool.Len() {
		t.Fatalf("pool len = %d, want %d", got.Pool.Len(), m.Pool.Len())
	}
	for i := 0; i < m.Pool.Len(); i++ {
		if !got.Pool.At(uint32(i)).Equal(m.Pool.At(uint32(i))) {
			t.Errorf("pool[%d] = %q, want %q", i, got.Pool.At(uint32(i)), m.Pool.At(uint32(i)))
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	m := NewModule()
	m.Emit(OpHalt)
	data := encode(t, m)

	if string(data[0:4]) != "VLBC" {
		t.Errorf("magic = %q", data[0:4])
	}
	if data[4] != FormatVersion {
		t.Errorf("version = %d", data[4])
	}
	if kcount := binary.LittleEndian.Uint32(data[5:]); kcount != 0 {
		t.Errorf("kcount = %d, want 0", kcount)
	}
	if codeLen := binary.LittleEndian.Uint32(data[9:]); codeLen != 1 {
		t.Errorf("code_len = %d, want 1", codeLen)
	}
	if Opcode(data[13]) != OpHalt {
		t.Errorf("code[0] = 0x%02X, want HALT", data[13])
	}
	if len(data) != 14 {
		t.Errorf("total length = %d, want 14", len(data))
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, &Error{Kind: ErrBadArgument}) {
		t.Errorf("Decode(nil) error = %v, want BadArgument", err)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := encode(t, buildTestModule(t))
	data[0] = 'X'
	if _, err := Decode(data); !errors.Is(err, &Error{Kind: ErrBadBytecode}) {
		t.Errorf("bad magic error = %v, want BadBytecode", err)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	data := encode(t, buildTestModule(t))
	data[4] = 2
	if _, err := Decode(data); !errors.Is(err, &Error{Kind: ErrBadBytecode}) {
		t.Errorf("bad version error = %v, want BadBytecode", err)
	}
}

func TestDecodeTruncation(t *testing.T) {
	data := encode(t, buildTestModule(t))

	// Every proper prefix must fail, never panic or succeed.
	for n := 0; n < len(data); n++ {
		if n > 0 {
			if _, err := Decode(data[:n]); err == nil {
				t.Errorf("Decode of %d-byte prefix succeeded", n)
			}
		}
	}
}

func TestDecodeTrailingGarbage(t *testing.T) {
	data := append(encode(t, buildTestModule(t)), 0xAB)
	if _, err := Decode(data); !errors.Is(err, &Error{Kind: ErrBadBytecode}) {
		t.Errorf("trailing bytes error = %v, want BadBytecode", err)
	}
}

func TestDecodeOversizedStringLength(t *testing.T) {
	m := NewModule()
	m.EmitStr(OpPushS, "s")
	m.Emit(OpHalt)
	data := encode(t, m)

	// Corrupt the first string's length field to claim more bytes than exist.
	binary.LittleEndian.PutUint32(data[9:], 0xFFFFFFF0)
	if _, err := Decode(data); !errors.Is(err, &Error{Kind: ErrBadBytecode}) {
		t.Errorf("oversized length error = %v, want BadBytecode", err)
	}
}

func TestDecodeRejectsInvalidCode(t *testing.T) {
	m := NewModule()
	m.Emit(OpHalt)
	data := encode(t, m)
	data[len(data)-1] = 0xEE // unknown opcode

	if _, err := Decode(data); !errors.Is(err, &Error{Kind: ErrBadBytecode}) {
		t.Errorf("invalid code error = %v, want BadBytecode", err)
	}
}

func TestDecodePreservesDuplicatePoolEntries(t *testing.T) {
	// Hand-build a container whose pool holds "a" twice; both indices must
	// survive decoding so code referring to index 1 stays valid.
	var buf []byte
	buf = append(buf, Magic...)
	buf = append(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	for i := 0; i < 2; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, 1)
		buf = append(buf, 'a')
	}
	code := []byte{byte(OpPushS), 1, 0, 0, 0, byte(OpHalt)}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(code)))
	buf = append(buf, code...)

	m, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Pool.Len() != 2 {
		t.Errorf("pool len = %d, want 2", m.Pool.Len())
	}
	if m.Pool.At(1).String() != "a" {
		t.Errorf("pool[1] = %q, want \"a\"", m.Pool.At(1))
	}
}

func TestEncodeRejectsOversizedCode(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates 4GiB")
	}
	// The container's code_len field is u32; a larger code section has no
	// representation and must be rejected rather than silently truncated.
	m := NewModule()
	m.Code = make([]byte, 1<<32)
	if _, err := m.Encode(); !errors.Is(err, &Error{Kind: ErrOutOfMemory}) {
		t.Errorf("oversized code error = %v, want OutOfMemory", err)
	}
}

func TestEmitPushInt(t *testing.T) {
	m := NewModule()
	m.EmitPushInt(-7)

	if Opcode(m.Code[0]) != OpPushI {
		t.Fatalf("code[0] = 0x%02X, want PUSHI", m.Code[0])
	}
	if got := int64(binary.LittleEndian.Uint64(m.Code[1:])); got != -7 {
		t.Errorf("operand = %d, want -7", got)
	}
}

func TestEmitStrDedup(t *testing.T) {
	m := NewModule()
	m.EmitStr(OpPushS, "print")
	m.EmitStr(OpLoadG, "print")
	m.EmitCallN("print", 0)

	if m.Pool.Len() != 1 {
		t.Errorf("pool len = %d, want 1 (dedup)", m.Pool.Len())
	}
}
