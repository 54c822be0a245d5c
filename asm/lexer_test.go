package asm

import "testing"

func TestTokenizeBasics(t *testing.T) {
	tokens := Tokenize("PUSHI 42\n")

	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "PUSHI"},
		{TokenInteger, "42"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Literal != w.lit {
			t.Errorf("token %d = %v, want %s(%q)", i, tokens[i], w.typ, w.lit)
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"0", TokenInteger},
		{"42", TokenInteger},
		{"-7", TokenInteger},
		{"+3", TokenInteger},
		{"3.14", TokenFloat},
		{"-1.5", TokenFloat},
		{"2e10", TokenFloat},
		{"1.5e-3", TokenFloat},
	}
	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		if tokens[0].Type != tt.typ {
			t.Errorf("Tokenize(%q)[0] = %s, want %s", tt.input, tokens[0].Type, tt.typ)
		}
		if tokens[0].Literal != tt.input {
			t.Errorf("Tokenize(%q) literal = %q", tt.input, tokens[0].Literal)
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\\b"`, `a\b`},
		{`"say \"hi\""`, `say "hi"`},
		{`"\x41\x62"`, "Ab"},
		{`"\x00"`, "\x00"},
	}
	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		if tokens[0].Type != TokenString {
			t.Errorf("Tokenize(%s)[0] = %v, want STRING", tt.input, tokens[0])
			continue
		}
		if tokens[0].Literal != tt.want {
			t.Errorf("Tokenize(%s) = %q, want %q", tt.input, tokens[0].Literal, tt.want)
		}
	}
}

func TestTokenizeStringErrors(t *testing.T) {
	for _, input := range []string{
		`"unterminated`,
		"\"broken\nacross lines\"",
		`"\q"`,
		`"\xZZ"`,
	} {
		tokens := Tokenize(input)
		last := tokens[len(tokens)-1]
		if last.Type != TokenError {
			t.Errorf("Tokenize(%q) should end in error, got %v", input, last)
		}
	}
}

func TestTokenizeComments(t *testing.T) {
	src := "NOP ; semicolon\nNOP # hash\nNOP // slashes\nNOP /* block */ HALT\n"
	tokens := Tokenize(src)

	var idents []string
	for _, tok := range tokens {
		if tok.Type == TokenIdentifier {
			idents = append(idents, tok.Literal)
		}
	}
	want := []string{"NOP", "NOP", "NOP", "NOP", "HALT"}
	if len(idents) != len(want) {
		t.Fatalf("idents = %v, want %v", idents, want)
	}
	for i := range want {
		if idents[i] != want[i] {
			t.Errorf("ident %d = %q, want %q", i, idents[i], want[i])
		}
	}
}

func TestTokenizeMultilineBlockComment(t *testing.T) {
	tokens := Tokenize("NOP /* spans\nlines */ HALT")
	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	// The newline inside the block comment is swallowed with it.
	want := []TokenType{TokenIdentifier, TokenIdentifier, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens := Tokenize("NOP\n  PUSHI 1\n")

	if tokens[0].Pos.Line != 1 || tokens[0].Pos.Column != 1 {
		t.Errorf("NOP at %d:%d, want 1:1", tokens[0].Pos.Line, tokens[0].Pos.Column)
	}
	// tokens: NOP, \n, PUSHI, 1, \n, EOF
	pushi := tokens[2]
	if pushi.Literal != "PUSHI" {
		t.Fatalf("tokens[2] = %v", pushi)
	}
	if pushi.Pos.Line != 2 || pushi.Pos.Column != 3 {
		t.Errorf("PUSHI at %d:%d, want 2:3", pushi.Pos.Line, pushi.Pos.Column)
	}
}

func TestTokenizePositionsWithLoneCarriageReturns(t *testing.T) {
	// Classic Mac line endings: a lone '\r' terminates the line and must
	// advance the line counter just like '\n'.
	tokens := Tokenize("NOP\rADD\r\nSUB\r")

	// tokens: NOP, \r, ADD, \r\n, SUB, \r, EOF
	add, sub := tokens[2], tokens[4]
	if add.Literal != "ADD" || sub.Literal != "SUB" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	if add.Pos.Line != 2 || add.Pos.Column != 1 {
		t.Errorf("ADD at %d:%d, want 2:1", add.Pos.Line, add.Pos.Column)
	}
	if sub.Pos.Line != 3 || sub.Pos.Column != 1 {
		t.Errorf("SUB at %d:%d, want 3:1", sub.Pos.Line, sub.Pos.Column)
	}
}

func TestTokenizeLabelAndComma(t *testing.T) {
	tokens := Tokenize("start: CALLN print, 2\n")

	wantTypes := []TokenType{
		TokenIdentifier, TokenColon, TokenIdentifier, TokenIdentifier,
		TokenComma, TokenInteger, TokenNewline, TokenEOF,
	}
	if len(tokens) != len(wantTypes) {
		t.Fatalf("got %d tokens: %v", len(tokens), tokens)
	}
	for i, w := range wantTypes {
		if tokens[i].Type != w {
			t.Errorf("token %d = %s, want %s", i, tokens[i].Type, w)
		}
	}
}
