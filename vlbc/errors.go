package vlbc

import "fmt"

// ErrorKind classifies every error the toolchain reports. The same taxonomy
// is used by the assembler, the linker, and the VM so that front ends can
// render any failure without re-deriving context.
type ErrorKind uint8

const (
	// ErrOutOfMemory reports exhaustion of a configured limit (pool size,
	// operand stack depth) during assembly, linking, or execution.
	ErrOutOfMemory ErrorKind = iota + 1

	// ErrBadBytecode reports a malformed container, unknown opcode,
	// truncated operand, or out-of-range string index. Always detected
	// before or during decode, never after partial execution.
	ErrBadBytecode

	// ErrBadArgument reports caller misuse: empty input, an argc outside
	// the accepted range, attaching a nil module.
	ErrBadArgument

	// ErrTypeError reports arithmetic or comparison on incompatible
	// value kinds at run time.
	ErrTypeError

	// ErrNotFound reports a CALLN referencing an unregistered native.
	ErrNotFound

	// ErrFault is the generic runtime error: stack underflow, division
	// by zero, execution past the end of code.
	ErrFault
)

// String returns a short lowercase name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrOutOfMemory:
		return "out of memory"
	case ErrBadBytecode:
		return "bad bytecode"
	case ErrBadArgument:
		return "bad argument"
	case ErrTypeError:
		return "type error"
	case ErrNotFound:
		return "not found"
	case ErrFault:
		return "fault"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is the structured error carried through the whole pipeline.
// Line and Column are 1-based and set only for assembler errors.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Line   int
	Column int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether target is an *Error with the same kind, so callers can
// match on taxonomy with errors.Is(err, &Error{Kind: ErrNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ErrorAt builds an assembler *Error carrying a source position.
func ErrorAt(kind ErrorKind, line, column int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Line: line, Column: column}
}
