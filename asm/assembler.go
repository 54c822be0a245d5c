package asm

import (
	"strconv"

	"github.com/vela-lang/vela/vlbc"
)

// ---------------------------------------------------------------------------
// Assembler: line-oriented parser over the lexer
// ---------------------------------------------------------------------------

// Grammar per logical line:
//
//	(ident ':')? mnemonic operand*
//
// A leading label is recorded on the module but has no effect on emitted
// code or addressing; the instruction set has no branch targets. Operands
// may be separated by a single comma. Assembly is all-or-nothing: the first
// lexical, grammatical, or validation error aborts and nothing is returned.

// Assemble turns assembly source into a validated module.
func Assemble(src string) (*vlbc.Module, error) {
	if src == "" {
		return nil, vlbc.Errorf(vlbc.ErrBadArgument, "empty source")
	}

	a := &assembler{
		lexer:  NewLexer(src),
		module: vlbc.NewModule(),
		labels: make(map[string]int),
	}
	a.next()

	if err := a.run(); err != nil {
		return nil, err
	}

	if err := a.module.Validate(); err != nil {
		return nil, err
	}
	a.module.Labels = a.labels
	return a.module, nil
}

type assembler struct {
	lexer  *Lexer
	module *vlbc.Module
	labels map[string]int
	tok    Token
}

func (a *assembler) next() {
	a.tok = a.lexer.NextToken()
}

// errAt builds an error at the current token.
func (a *assembler) errAt(kind vlbc.ErrorKind, format string, args ...any) error {
	return vlbc.ErrorAt(kind, a.tok.Pos.Line, a.tok.Pos.Column, format, args...)
}

func (a *assembler) run() error {
	for {
		switch a.tok.Type {
		case TokenEOF:
			return nil
		case TokenError:
			return a.errAt(vlbc.ErrBadArgument, "%s", a.tok.Literal)
		case TokenNewline:
			a.next()
		case TokenIdentifier:
			if err := a.statement(); err != nil {
				return err
			}
		default:
			return a.errAt(vlbc.ErrBadArgument, "expected mnemonic or label, got %s", a.tok.Type)
		}
	}
}

// statement parses one logical line starting at an identifier.
func (a *assembler) statement() error {
	name := a.tok.Literal
	nameTok := a.tok
	a.next()

	// Leading label.
	if a.tok.Type == TokenColon {
		if _, dup := a.labels[name]; dup {
			return vlbc.ErrorAt(vlbc.ErrBadArgument, nameTok.Pos.Line, nameTok.Pos.Column,
				"duplicate label %q", name)
		}
		a.labels[name] = len(a.module.Code)
		a.next()

		// A label may stand alone on its line.
		if a.tok.Type == TokenNewline || a.tok.Type == TokenEOF {
			return nil
		}
		if a.tok.Type != TokenIdentifier {
			return a.errAt(vlbc.ErrBadArgument, "expected mnemonic after label, got %s", a.tok.Type)
		}
		name = a.tok.Literal
		nameTok = a.tok
		a.next()
	}

	op, ok := vlbc.LookupMnemonic(name)
	if !ok {
		return vlbc.ErrorAt(vlbc.ErrBadArgument, nameTok.Pos.Line, nameTok.Pos.Column,
			"unknown mnemonic %q", name)
	}

	if err := a.operands(op); err != nil {
		return err
	}

	return a.endOfLine(op)
}

// operands parses and emits the mnemonic-specific operand list.
func (a *assembler) operands(op vlbc.Opcode) error {
	switch op {
	case vlbc.OpPushI:
		v, err := a.intOperand()
		if err != nil {
			return err
		}
		a.module.EmitPushInt(v)
		return nil

	case vlbc.OpPushF:
		v, err := a.floatOperand()
		if err != nil {
			return err
		}
		a.module.EmitPushFloat(v)
		return nil

	case vlbc.OpPushS, vlbc.OpStoreG, vlbc.OpLoadG:
		s, err := a.nameOperand()
		if err != nil {
			return err
		}
		if _, err := a.module.EmitStr(op, s); err != nil {
			return err
		}
		return nil

	case vlbc.OpCallN:
		name, err := a.nameOperand()
		if err != nil {
			return err
		}
		a.comma()
		argc, err := a.argcOperand()
		if err != nil {
			return err
		}
		if argc < 0 || argc > 255 {
			return a.errAt(vlbc.ErrBadArgument, "argc %d out of range [0,255]", argc)
		}
		if _, err := a.module.EmitCallN(name, uint8(argc)); err != nil {
			return err
		}
		return nil

	default:
		a.module.Emit(op)
		return nil
	}
}

// intOperand accepts an integer literal, or a float literal truncated
// toward zero (the cross-acceptance rule).
func (a *assembler) intOperand() (int64, error) {
	switch a.tok.Type {
	case TokenInteger:
		v, err := strconv.ParseInt(a.tok.Literal, 10, 64)
		if err != nil {
			return 0, a.errAt(vlbc.ErrBadArgument, "integer literal %s out of range", a.tok.Literal)
		}
		a.next()
		return v, nil

	case TokenFloat:
		f, err := strconv.ParseFloat(a.tok.Literal, 64)
		if err != nil {
			return 0, a.errAt(vlbc.ErrBadArgument, "bad float literal %s", a.tok.Literal)
		}
		a.next()
		return int64(f), nil

	default:
		return 0, a.errAt(vlbc.ErrBadArgument, "expected numeric literal, got %s", a.tok.Type)
	}
}

// argcOperand accepts only an integer literal. Cross-acceptance of float
// literals is a push-instruction rule; an argument count is an integer.
func (a *assembler) argcOperand() (int64, error) {
	if a.tok.Type != TokenInteger {
		return 0, a.errAt(vlbc.ErrBadArgument, "expected integer argc, got %s", a.tok.Type)
	}
	v, err := strconv.ParseInt(a.tok.Literal, 10, 64)
	if err != nil {
		return 0, a.errAt(vlbc.ErrBadArgument, "integer literal %s out of range", a.tok.Literal)
	}
	a.next()
	return v, nil
}

// floatOperand accepts a float literal, or an integer literal promoted.
func (a *assembler) floatOperand() (float64, error) {
	switch a.tok.Type {
	case TokenFloat, TokenInteger:
		f, err := strconv.ParseFloat(a.tok.Literal, 64)
		if err != nil {
			return 0, a.errAt(vlbc.ErrBadArgument, "bad numeric literal %s", a.tok.Literal)
		}
		a.next()
		return f, nil

	default:
		return 0, a.errAt(vlbc.ErrBadArgument, "expected numeric literal, got %s", a.tok.Type)
	}
}

// nameOperand accepts an identifier or a quoted string.
func (a *assembler) nameOperand() (string, error) {
	switch a.tok.Type {
	case TokenIdentifier, TokenString:
		s := a.tok.Literal
		a.next()
		return s, nil
	case TokenError:
		return "", a.errAt(vlbc.ErrBadArgument, "%s", a.tok.Literal)
	default:
		return "", a.errAt(vlbc.ErrBadArgument, "expected name or string, got %s", a.tok.Type)
	}
}

// comma consumes a single optional separator.
func (a *assembler) comma() {
	if a.tok.Type == TokenComma {
		a.next()
	}
}

// endOfLine requires the statement to finish cleanly.
func (a *assembler) endOfLine(op vlbc.Opcode) error {
	switch a.tok.Type {
	case TokenNewline:
		a.next()
		return nil
	case TokenEOF:
		return nil
	case TokenError:
		return a.errAt(vlbc.ErrBadArgument, "%s", a.tok.Literal)
	default:
		return a.errAt(vlbc.ErrBadArgument, "unexpected %s after %s", a.tok.Type, op)
	}
}
