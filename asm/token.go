// Package asm implements the VLBC text assembler: a tokenizer and a
// line-oriented parser that turn ASCII source into a validated module.
package asm

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the assembler lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, -7
	TokenFloat      // 3.14, -1.5e10
	TokenString     // "hello\n"
	TokenIdentifier // print, loop_start

	// Punctuation
	TokenColon   // :
	TokenComma   // ,
	TokenNewline // statement terminator
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenColon:      ":",
	TokenComma:      ",",
	TokenNewline:    "NEWLINE",
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Position is a location in the source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

// Token is one lexical unit.
type Token struct {
	Type    TokenType
	Literal string // decoded literal (escapes resolved for strings)
	Pos     Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}
