package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for zlox syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes zlox source code. Tokens are produced one at a time on
// demand; nothing is scanned ahead of the caller. Once the source is
// exhausted every further call returns an EOF token.
type Lexer struct {
	src     string
	pos     int  // offset of the current character
	readPos int  // offset after the current character
	ch      byte // current character, 0 at EOF
	line    int  // current line (1-based)
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	l := &Lexer{
		src:  src,
		line: 1,
	}
	l.readChar()
	return l
}

// readChar advances to the next character. Line counting happens here so
// it stays correct inside strings and skipped comments.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.src) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	l.ch = l.src[l.readPos]
	l.pos = l.readPos
	l.readPos++
	if l.ch == '\n' {
		l.line++
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.src) {
		return 0
	}
	return l.src[l.readPos]
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.pos
	line := l.line

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Lexeme: "", Line: line, Offset: start}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Lexeme: "(", Line: line, Offset: start}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Lexeme: ")", Line: line, Offset: start}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Lexeme: "{", Line: line, Offset: start}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Lexeme: "}", Line: line, Offset: start}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Lexeme: ",", Line: line, Offset: start}

	case l.ch == '.':
		l.readChar()
		return Token{Type: TokenDot, Lexeme: ".", Line: line, Offset: start}

	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Lexeme: ";", Line: line, Offset: start}

	case l.ch == '+':
		return l.operator(TokenPlus, TokenPlusEqual, start, line)

	case l.ch == '-':
		return l.operator(TokenMinus, TokenMinusEqual, start, line)

	case l.ch == '*':
		return l.operator(TokenStar, TokenStarEqual, start, line)

	case l.ch == '/':
		return l.operator(TokenSlash, TokenSlashEqual, start, line)

	case l.ch == '=':
		return l.operator(TokenEqual, TokenEqualEqual, start, line)

	case l.ch == '<':
		return l.operator(TokenLess, TokenLessEqual, start, line)

	case l.ch == '>':
		return l.operator(TokenGreater, TokenGreaterEqual, start, line)

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenBangEqual, Lexeme: "!=", Line: line, Offset: start}
		}
		return Token{Type: TokenError, Lexeme: "unexpected character '!' (use 'not' to negate)", Line: line, Offset: start}

	case l.ch == '"':
		return l.readString(start, line)

	case isDigit(l.ch):
		return l.readNumber(start, line)

	case isLetter(l.ch):
		return l.readIdentifier(start, line)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Lexeme: fmt.Sprintf("unexpected character %q", ch), Line: line, Offset: start}
	}
}

// operator consumes a one-character operator that may absorb a trailing
// '=' to form its compound variant.
func (l *Lexer) operator(plain, compound TokenType, start, line int) Token {
	l.readChar()
	if l.ch == '=' {
		l.readChar()
	}
	lexeme := l.src[start:l.pos]
	if len(lexeme) == 2 {
		return Token{Type: compound, Lexeme: lexeme, Line: line, Offset: start}
	}
	return Token{Type: plain, Lexeme: lexeme, Line: line, Offset: start}
}

// skipWhitespaceAndComments skips blanks and line comments. Newlines are
// counted by readChar as they pass through.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}

		// Line comments: // to end of line
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a string literal. The lexeme excludes the delimiting
// quotes. A quote preceded by a backslash does not terminate the literal;
// escapes are not decoded beyond that one-character lookbehind.
func (l *Lexer) readString(start, line int) Token {
	l.readChar() // consume opening quote

	contentStart := l.pos
	for l.ch != 0 {
		if l.ch == '"' && l.src[l.pos-1] != '\\' {
			break
		}
		l.readChar()
	}

	if l.ch == 0 {
		return Token{Type: TokenError, Lexeme: "unterminated string literal", Line: l.line, Offset: start}
	}

	lexeme := l.src[contentStart:l.pos]
	l.readChar() // consume closing quote
	return Token{Type: TokenString, Lexeme: lexeme, Line: line, Offset: start}
}

// readNumber reads an integer or decimal literal. A '.' not followed by a
// digit is a scan error; there are no trailing-dot floats.
func (l *Lexer) readNumber(start, line int) Token {
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' {
		if !isDigit(l.peekChar()) {
			l.readChar() // consume the stray dot so scanning can continue
			return Token{Type: TokenError, Lexeme: "expected digit after decimal point", Line: line, Offset: start}
		}
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return Token{Type: TokenNumber, Lexeme: l.src[start:l.pos], Line: line, Offset: start}
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(start, line int) Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}

	lexeme := l.src[start:l.pos]
	if t, ok := reservedWords[lexeme]; ok {
		return Token{Type: t, Lexeme: lexeme, Line: line, Offset: start}
	}
	return Token{Type: TokenIdentifier, Lexeme: lexeme, Line: line, Offset: start}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}
