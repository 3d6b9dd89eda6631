package compiler

import (
	"strings"
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) { } , . ;`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Lexeme != exp.lit {
			t.Errorf("token[%d] lexeme = %q, want %q", i, tok.Lexeme, exp.lit)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	input := `+ += - -= * *= / /= = == != < <= > >=`
	expected := []TokenType{
		TokenPlus, TokenPlusEqual,
		TokenMinus, TokenMinusEqual,
		TokenStar, TokenStarEqual,
		TokenSlash, TokenSlashEqual,
		TokenEqual, TokenEqualEqual,
		TokenBangEqual,
		TokenLess, TokenLessEqual,
		TokenGreater, TokenGreaterEqual,
		TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"0", "0"},
		{"3.14", "3.14"},
		{"0.5", "0.5"},
		{"123456789", "123456789"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenNumber {
			t.Errorf("Lexer(%q): type = %v, want NUMBER", tc.input, tok.Type)
		}
		if tok.Lexeme != tc.want {
			t.Errorf("Lexer(%q): lexeme = %q, want %q", tc.input, tok.Lexeme, tc.want)
		}
	}
}

func TestLexerTrailingDot(t *testing.T) {
	l := NewLexer("3.")
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("Lexer(\"3.\"): type = %v, want ERROR", tok.Type)
	}
	if !strings.Contains(tok.Lexeme, "decimal point") {
		t.Errorf("Lexer(\"3.\"): message = %q, want decimal point error", tok.Lexeme)
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`"with spaces"`, "with spaces"},
		{`"esc \" aped"`, `esc \" aped`},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%q): type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Lexeme != tc.want {
			t.Errorf("Lexer(%q): lexeme = %q, want %q", tc.input, tok.Lexeme, tc.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	l := NewLexer("\"never closed\nand more")
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("type = %v, want ERROR", tok.Type)
	}
	if !strings.Contains(tok.Lexeme, "unterminated") {
		t.Errorf("message = %q, want unterminated string error", tok.Lexeme)
	}
	if tok.Line != 2 {
		t.Errorf("line = %d, want 2 (detected at end of input)", tok.Line)
	}
}

func TestLexerStringSpansLines(t *testing.T) {
	l := NewLexer("\"one\ntwo\" 7")
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("type = %v, want STRING", tok.Type)
	}
	if tok.Lexeme != "one\ntwo" {
		t.Errorf("lexeme = %q, want %q", tok.Lexeme, "one\ntwo")
	}
	if tok.Line != 1 {
		t.Errorf("line = %d, want 1", tok.Line)
	}

	num := l.NextToken()
	if num.Type != TokenNumber || num.Line != 2 {
		t.Errorf("next token = %v line %d, want NUMBER on line 2", num.Type, num.Line)
	}
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	input := `foo _bar baz42 and class else false for fn if let nil not or print return super switch this true while xor`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "foo"},
		{TokenIdentifier, "_bar"},
		{TokenIdentifier, "baz42"},
		{TokenAnd, "and"},
		{TokenClass, "class"},
		{TokenElse, "else"},
		{TokenFalse, "false"},
		{TokenFor, "for"},
		{TokenFn, "fn"},
		{TokenIf, "if"},
		{TokenLet, "let"},
		{TokenNil, "nil"},
		{TokenNot, "not"},
		{TokenOr, "or"},
		{TokenPrint, "print"},
		{TokenReturn, "return"},
		{TokenSuper, "super"},
		{TokenSwitch, "switch"},
		{TokenThis, "this"},
		{TokenTrue, "true"},
		{TokenWhile, "while"},
		{TokenXor, "xor"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Lexeme != exp.lit {
			t.Errorf("token[%d] lexeme = %q, want %q", i, tok.Lexeme, exp.lit)
		}
	}
}

func TestLexerBareBang(t *testing.T) {
	l := NewLexer("!true")
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("type = %v, want ERROR", tok.Type)
	}
	if !strings.Contains(tok.Lexeme, "not") {
		t.Errorf("message = %q, want a hint pointing at 'not'", tok.Lexeme)
	}
}

func TestLexerCommentsAndLines(t *testing.T) {
	input := "1 // one\n// full line comment\n2"
	l := NewLexer(input)

	tok := l.NextToken()
	if tok.Type != TokenNumber || tok.Line != 1 {
		t.Errorf("first token = %v line %d, want NUMBER on line 1", tok.Type, tok.Line)
	}

	tok = l.NextToken()
	if tok.Type != TokenNumber || tok.Line != 3 {
		t.Errorf("second token = %v line %d, want NUMBER on line 3", tok.Type, tok.Line)
	}
}

func TestLexerEOFForever(t *testing.T) {
	l := NewLexer("1;")
	l.NextToken()
	l.NextToken()
	for i := 0; i < 5; i++ {
		tok := l.NextToken()
		if tok.Type != TokenEOF {
			t.Fatalf("call %d after exhaustion: type = %v, want EOF", i, tok.Type)
		}
	}
}

func TestLexerOffsets(t *testing.T) {
	input := `ab + "cd"`
	l := NewLexer(input)

	tok := l.NextToken()
	if tok.Offset != 0 {
		t.Errorf("ident offset = %d, want 0", tok.Offset)
	}
	tok = l.NextToken()
	if tok.Offset != 3 {
		t.Errorf("operator offset = %d, want 3", tok.Offset)
	}
	tok = l.NextToken()
	if tok.Offset != 5 {
		t.Errorf("string offset = %d, want 5 (opening quote)", tok.Offset)
	}
}

func FuzzLexer(f *testing.F) {
	seeds := []string{
		`( ) { } , . ;`,
		`42`, `0`, `3.14`, `3.`,
		`"hello"`, `""`, `"it \" goes on"`, `"unterminated`,
		`foo`, `_bar`, `let`, `print`, `not`, `xor`,
		`+ += - -= * *= / /= = == != < <= > >=`,
		`!`, `!=`,
		"// comment\n1;",
		`print(1 + 2);`,
		`let x = "a" + "b";`,
		``, `   `, "\t\n\r",
		"\x00\xff\x80",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic scanning %q: %v", data, r)
			}
		}()

		// Every token but EOF consumes at least one byte, so any input
		// must reach EOF in a bounded number of steps.
		l := NewLexer(data)
		for steps := 0; l.NextToken().Type != TokenEOF; steps++ {
			if steps > len(data) {
				t.Fatalf("no EOF after %d tokens on %q", steps, data)
			}
		}
	})
}
