package vlbc

import (
	"encoding/binary"
	"math"

	"fortio.org/safecast"
)

// FormatVersion is the current VLBC container version. Decoding rejects
// every other value.
const FormatVersion byte = 1

// Magic bytes for VLBC buffers.
var Magic = []byte{'V', 'L', 'B', 'C'}

// headerLen is magic + version + kcount.
const headerLen = 4 + 1 + 4

// Module is one unit of assembled or linked code: a string pool plus a code
// byte buffer. A Module is immutable once built and validated, and may then
// be shared read-only across VM contexts.
type Module struct {
	Pool *Pool
	Code []byte

	// Labels maps assembler label names to code offsets. Labels have no
	// runtime effect; the table exists for tooling only and is not
	// serialized into the container.
	Labels map[string]int
}

// NewModule creates an empty module with a fresh pool.
func NewModule() *Module {
	return &Module{
		Pool: NewPool(),
		Code: make([]byte, 0, 64),
	}
}

// ---------------------------------------------------------------------------
// Instruction emission
// ---------------------------------------------------------------------------

// Emit appends a zero-operand instruction and returns its offset.
func (m *Module) Emit(op Opcode) int {
	offset := len(m.Code)
	m.Code = append(m.Code, byte(op))
	return offset
}

// EmitPushInt appends a PUSHI instruction.
func (m *Module) EmitPushInt(v int64) int {
	offset := m.Emit(OpPushI)
	m.Code = binary.LittleEndian.AppendUint64(m.Code, uint64(v))
	return offset
}

// EmitPushFloat appends a PUSHF instruction.
func (m *Module) EmitPushFloat(v float64) int {
	offset := m.Emit(OpPushF)
	m.Code = binary.LittleEndian.AppendUint64(m.Code, math.Float64bits(v))
	return offset
}

// EmitStr appends an instruction whose operand is a string-pool index
// (PUSHS, STOREG, LOADG), interning s on first use.
func (m *Module) EmitStr(op Opcode, s string) (int, error) {
	entry, err := m.Pool.Intern(s)
	if err != nil {
		return 0, err
	}
	offset := m.Emit(op)
	m.Code = binary.LittleEndian.AppendUint32(m.Code, entry.Index())
	return offset, nil
}

// EmitCallN appends a CALLN instruction for the named native.
func (m *Module) EmitCallN(name string, argc uint8) (int, error) {
	entry, err := m.Pool.Intern(name)
	if err != nil {
		return 0, err
	}
	offset := m.Emit(OpCallN)
	m.Code = binary.LittleEndian.AppendUint32(m.Code, entry.Index())
	m.Code = append(m.Code, argc)
	return offset, nil
}

// ---------------------------------------------------------------------------
// Container codec
// ---------------------------------------------------------------------------

// Encode serializes the module into the VLBC layout. Fields are emitted in
// container order with no padding; all integers are little-endian. Section
// lengths are u32 on the wire; a module whose code or strings do not fit
// the length fields cannot be represented and reports ErrOutOfMemory.
func (m *Module) Encode() ([]byte, error) {
	codeLen, err := safecast.Conv[uint32](len(m.Code))
	if err != nil {
		return nil, Errorf(ErrOutOfMemory, "code section of %d bytes exceeds the u32 length field", len(m.Code))
	}

	size := headerLen + 4 + len(m.Code)
	m.Pool.Each(func(e *Interned) {
		size += 4 + len(e.Bytes())
	})

	buf := make([]byte, 0, size)
	buf = append(buf, Magic...)
	buf = append(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Pool.Len()))
	for i := 0; i < m.Pool.Len(); i++ {
		e := m.Pool.At(uint32(i))
		strLen, err := safecast.Conv[uint32](len(e.Bytes()))
		if err != nil {
			return nil, Errorf(ErrOutOfMemory, "pool string %d of %d bytes exceeds the u32 length field", i, len(e.Bytes()))
		}
		buf = binary.LittleEndian.AppendUint32(buf, strLen)
		buf = append(buf, e.Bytes()...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, codeLen)
	buf = append(buf, m.Code...)
	return buf, nil
}

// Decode parses a VLBC buffer into a Module and validates its code section.
// Decoding is all-or-nothing: any truncation, bad magic, unsupported
// version, or validation failure returns ErrBadBytecode and no module.
func Decode(data []byte) (*Module, error) {
	if len(data) == 0 {
		return nil, Errorf(ErrBadArgument, "empty input")
	}
	if len(data) < headerLen {
		return nil, Errorf(ErrBadBytecode, "buffer too short: %d bytes, need at least %d", len(data), headerLen)
	}
	if string(data[0:4]) != string(Magic) {
		return nil, Errorf(ErrBadBytecode, "bad magic: expected %q, got %q", Magic, data[0:4])
	}
	if data[4] != FormatVersion {
		return nil, Errorf(ErrBadBytecode, "unsupported version %d (this toolchain implements version %d)", data[4], FormatVersion)
	}

	kcount := binary.LittleEndian.Uint32(data[5:])
	pos := headerLen

	pool := NewPool()
	for i := uint32(0); i < kcount; i++ {
		if pos+4 > len(data) {
			return nil, Errorf(ErrBadBytecode, "truncated reading length of string %d", i)
		}
		strLen := binary.LittleEndian.Uint32(data[pos:])
		pos += 4

		if strLen > uint32(len(data)-pos) {
			return nil, Errorf(ErrBadBytecode, "truncated reading string %d: need %d bytes, have %d", i, strLen, len(data)-pos)
		}
		// appendRaw keeps duplicate entries in place: an external buffer
		// defines its indices by position, not by content.
		if _, err := pool.appendRaw(string(data[pos : pos+int(strLen)])); err != nil {
			return nil, err
		}
		pos += int(strLen)
	}

	if pos+4 > len(data) {
		return nil, Errorf(ErrBadBytecode, "truncated reading code length")
	}
	codeLen := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	if codeLen > uint32(len(data)-pos) {
		return nil, Errorf(ErrBadBytecode, "truncated reading code: need %d bytes, have %d", codeLen, len(data)-pos)
	}
	code := make([]byte, codeLen)
	copy(code, data[pos:pos+int(codeLen)])
	pos += int(codeLen)

	if pos != len(data) {
		return nil, Errorf(ErrBadBytecode, "%d trailing bytes after code section", len(data)-pos)
	}

	m := &Module{Pool: pool, Code: code}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate runs the streaming validator over the module's own code and pool.
func (m *Module) Validate() error {
	poolLen, err := safecast.Conv[uint32](m.Pool.Len())
	if err != nil {
		return Errorf(ErrOutOfMemory, "string pool exceeds %d entries", uint64(1)<<32)
	}
	return Validate(m.Code, poolLen)
}
