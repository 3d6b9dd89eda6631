package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the zlox lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Punctuation
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenDot       // .
	TokenSemicolon // ;

	// Operators
	TokenPlus         // +
	TokenPlusEqual    // +=
	TokenMinus        // -
	TokenMinusEqual   // -=
	TokenStar         // *
	TokenStarEqual    // *=
	TokenSlash        // /
	TokenSlashEqual   // /=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenBangEqual    // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Literals
	TokenIdentifier // foo, bar_baz
	TokenString     // "hello"
	TokenNumber     // 42, 3.14

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenFn
	TokenIf
	TokenLet
	TokenNil
	TokenNot
	TokenOr
	TokenPrint
	TokenReturn
	TokenSuper
	TokenSwitch
	TokenThis
	TokenTrue
	TokenWhile
	TokenXor

	tokenCount // sentinel for the parse rule table
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenError:        "ERROR",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenSemicolon:    ";",
	TokenPlus:         "+",
	TokenPlusEqual:    "+=",
	TokenMinus:        "-",
	TokenMinusEqual:   "-=",
	TokenStar:         "*",
	TokenStarEqual:    "*=",
	TokenSlash:        "/",
	TokenSlashEqual:   "/=",
	TokenEqual:        "=",
	TokenEqualEqual:   "==",
	TokenBangEqual:    "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAnd:          "and",
	TokenClass:        "class",
	TokenElse:         "else",
	TokenFalse:        "false",
	TokenFor:          "for",
	TokenFn:           "fn",
	TokenIf:           "if",
	TokenLet:          "let",
	TokenNil:          "nil",
	TokenNot:          "not",
	TokenOr:           "or",
	TokenPrint:        "print",
	TokenReturn:       "return",
	TokenSuper:        "super",
	TokenSwitch:       "switch",
	TokenThis:         "this",
	TokenTrue:         "true",
	TokenWhile:        "while",
	TokenXor:          "xor",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. Lexeme is a slice of the source text,
// except for TokenError where it carries the scan error message. Offset is
// the byte position of the token's first character in the source.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Offset int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Lexeme)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"and":    TokenAnd,
	"class":  TokenClass,
	"else":   TokenElse,
	"false":  TokenFalse,
	"for":    TokenFor,
	"fn":     TokenFn,
	"if":     TokenIf,
	"let":    TokenLet,
	"nil":    TokenNil,
	"not":    TokenNot,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"super":  TokenSuper,
	"switch": TokenSwitch,
	"this":   TokenThis,
	"true":   TokenTrue,
	"while":  TokenWhile,
	"xor":    TokenXor,
}

// Keywords returns every reserved word, sorted. Editor tooling uses this
// for completion and highlighting.
func Keywords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := reservedWords[word]
	return ok
}
