package compiler

import (
	"fmt"
	"strconv"

	"github.com/cmourglia/zlox/vm"
)

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

// Diagnostic is a single compile error, pinned to a source line.
type Diagnostic struct {
	Line    int
	Message string
}

// CompileError aggregates every diagnostic from one compilation, in source
// order. Compilation always runs to the end of the source; after the first
// error in a statement the compiler resynchronizes at the next statement
// boundary, so one broken statement yields one diagnostic.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compile error"
	}
	first := e.Diagnostics[0]
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("line %d: %s", first.Line, first.Message)
	}
	return fmt.Sprintf("line %d: %s (and %d more errors)", first.Line, first.Message, len(e.Diagnostics)-1)
}

// ---------------------------------------------------------------------------
// Precedence and parse rules
// ---------------------------------------------------------------------------

// precedence levels from lowest to highest binding power.
type precedence uint8

const (
	precNone precedence = iota
	precAssignment
	precOr
	precXor
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// prefixOp and infixOp enumerate the parse actions a token can trigger.
// The rule table stores these descriptors rather than function values, so
// the whole grammar is visible in one place.
type prefixOp uint8

const (
	prefixNone prefixOp = iota
	prefixGrouping
	prefixUnary
	prefixNumber
	prefixString
	prefixLiteral
)

type infixOp uint8

const (
	infixNone infixOp = iota
	infixBinary
)

type parseRule struct {
	prefix prefixOp
	infix  infixOp
	prec   precedence
}

// rules maps each token type to its parse rule. Tokens not listed can
// start nothing and continue nothing.
var rules = [tokenCount]parseRule{
	TokenLParen: {prefixGrouping, infixNone, precNone},

	TokenPlus:  {prefixNone, infixBinary, precTerm},
	TokenMinus: {prefixUnary, infixBinary, precTerm},
	TokenStar:  {prefixNone, infixBinary, precFactor},
	TokenSlash: {prefixNone, infixBinary, precFactor},

	TokenEqualEqual:   {prefixNone, infixBinary, precEquality},
	TokenBangEqual:    {prefixNone, infixBinary, precEquality},
	TokenLess:         {prefixNone, infixBinary, precComparison},
	TokenLessEqual:    {prefixNone, infixBinary, precComparison},
	TokenGreater:      {prefixNone, infixBinary, precComparison},
	TokenGreaterEqual: {prefixNone, infixBinary, precComparison},

	TokenAnd: {prefixNone, infixBinary, precAnd},
	TokenOr:  {prefixNone, infixBinary, precOr},
	TokenXor: {prefixNone, infixBinary, precXor},
	TokenNot: {prefixUnary, infixNone, precNone},

	TokenNumber: {prefixNumber, infixNone, precNone},
	TokenString: {prefixString, infixNone, precNone},
	TokenTrue:   {prefixLiteral, infixNone, precNone},
	TokenFalse:  {prefixLiteral, infixNone, precNone},
	TokenNil:    {prefixLiteral, infixNone, precNone},
}

func ruleFor(t TokenType) parseRule {
	if t < 0 || t >= tokenCount {
		return parseRule{}
	}
	return rules[t]
}

// ---------------------------------------------------------------------------
// Compiler: single-pass source to bytecode
// ---------------------------------------------------------------------------

// compiler holds the state of one compilation. Parsing and code emission
// are fused; there is no syntax tree.
type compiler struct {
	lex      *Lexer
	current  Token
	previous Token

	chunk *vm.Chunk
	heap  *vm.Heap

	diags     []Diagnostic
	panicMode bool
}

// Compile translates source into bytecode appended to chunk. String
// literals are allocated in heap and referenced from the constant pool.
// On failure the returned error is a *CompileError listing every
// diagnostic; the chunk contents are then meaningless and must not be run.
func Compile(source string, chunk *vm.Chunk, heap *vm.Heap) error {
	c := &compiler{
		lex:   NewLexer(source),
		chunk: chunk,
		heap:  heap,
	}

	c.advance()
	for !c.match(TokenEOF) {
		c.declaration()
	}
	c.chunk.Emit(vm.OpReturn, c.previous.Line)

	if len(c.diags) > 0 {
		return &CompileError{Diagnostics: c.diags}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

// advance moves to the next token. Scan errors surface here as compile
// diagnostics; the parser itself only ever sees well-formed tokens.
func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != TokenError {
			return
		}
		c.errorAt(c.current, c.current.Lexeme)
	}
}

func (c *compiler) check(t TokenType) bool {
	return c.current.Type == t
}

func (c *compiler) match(t TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *compiler) consume(t TokenType, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAt(c.current, msg)
}

// errorAt records a diagnostic for tok. While in panic mode further
// diagnostics are suppressed until the parser resynchronizes.
func (c *compiler) errorAt(tok Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	switch tok.Type {
	case TokenEOF:
		msg = fmt.Sprintf("at end: %s", msg)
	case TokenError:
		// The scan error message stands on its own.
	default:
		msg = fmt.Sprintf("at '%s': %s", tok.Lexeme, msg)
	}
	c.diags = append(c.diags, Diagnostic{Line: tok.Line, Message: msg})
}

// synchronize discards tokens until a statement boundary, then leaves
// panic mode so the next statement reports its own errors.
func (c *compiler) synchronize() {
	for c.current.Type != TokenEOF {
		if c.previous.Type == TokenSemicolon {
			break
		}
		switch c.current.Type {
		case TokenClass, TokenFn, TokenLet, TokenFor, TokenIf,
			TokenWhile, TokenSwitch, TokenPrint, TokenReturn:
			c.panicMode = false
			return
		}
		c.advance()
	}
	c.panicMode = false
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (c *compiler) declaration() {
	if c.match(TokenLet) {
		c.letDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// letDeclaration parses a let declaration. Bindings do not exist yet, so
// the name is discarded and an initializer is compiled only for its
// effects: its value is popped immediately.
func (c *compiler) letDeclaration() {
	c.consume(TokenIdentifier, "expected a variable name after 'let'")

	if c.match(TokenEqual) {
		c.expression()
		c.chunk.Emit(vm.OpPop, c.previous.Line)
	}

	c.consume(TokenSemicolon, "expected ';' after declaration")
}

func (c *compiler) statement() {
	if c.match(TokenPrint) {
		c.printStatement()
	} else {
		c.expressionStatement()
	}
}

// printStatement compiles print(expr);
func (c *compiler) printStatement() {
	keyword := c.previous
	c.consume(TokenLParen, "expected '(' after 'print'")
	c.expression()
	c.consume(TokenRParen, "expected ')' after value")
	c.consume(TokenSemicolon, "expected ';' after ')'")
	c.chunk.Emit(vm.OpPrint, keyword.Line)
}

// expressionStatement compiles an expression evaluated for its effects;
// the result is popped so statements leave the stack balanced.
func (c *compiler) expressionStatement() {
	c.expression()
	c.consume(TokenSemicolon, "expected ';' after expression")
	c.chunk.Emit(vm.OpPop, c.previous.Line)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence is the core of the Pratt parser: consume one token and
// run its prefix action, then keep consuming infix operators as long as
// they bind at least as tightly as min.
func (c *compiler) parsePrecedence(min precedence) {
	c.advance()
	rule := ruleFor(c.previous.Type)
	if rule.prefix == prefixNone {
		c.errorAt(c.previous, "expected an expression")
		return
	}
	c.runPrefix(rule.prefix)

	for ruleFor(c.current.Type).prec >= min {
		c.advance()
		c.runInfix(ruleFor(c.previous.Type).infix)
	}
}

func (c *compiler) runPrefix(op prefixOp) {
	switch op {
	case prefixGrouping:
		c.grouping()
	case prefixUnary:
		c.unary()
	case prefixNumber:
		c.number()
	case prefixString:
		c.stringLiteral()
	case prefixLiteral:
		c.literal()
	}
}

func (c *compiler) runInfix(op infixOp) {
	if op == infixBinary {
		c.binary()
	}
}

func (c *compiler) grouping() {
	c.expression()
	c.consume(TokenRParen, "expected ')' after expression")
}

func (c *compiler) unary() {
	op := c.previous
	c.parsePrecedence(precUnary)

	switch op.Type {
	case TokenMinus:
		c.chunk.Emit(vm.OpNeg, op.Line)
	case TokenNot:
		c.chunk.Emit(vm.OpNot, op.Line)
	}
}

// binary compiles the right operand of an infix operator, then emits the
// operator. The right operand is parsed one level tighter, which makes
// every binary operator left-associative.
func (c *compiler) binary() {
	op := c.previous
	rule := ruleFor(op.Type)
	c.parsePrecedence(rule.prec + 1)

	switch op.Type {
	case TokenPlus:
		c.chunk.Emit(vm.OpAdd, op.Line)
	case TokenMinus:
		c.chunk.Emit(vm.OpSub, op.Line)
	case TokenStar:
		c.chunk.Emit(vm.OpMul, op.Line)
	case TokenSlash:
		c.chunk.Emit(vm.OpDiv, op.Line)
	case TokenAnd:
		c.chunk.Emit(vm.OpAnd, op.Line)
	case TokenOr:
		c.chunk.Emit(vm.OpOr, op.Line)
	case TokenXor:
		c.chunk.Emit(vm.OpXor, op.Line)
	case TokenEqualEqual:
		c.chunk.Emit(vm.OpEqual, op.Line)
	case TokenBangEqual:
		c.chunk.Emit(vm.OpNotEqual, op.Line)
	case TokenGreater:
		c.chunk.Emit(vm.OpGreater, op.Line)
	case TokenGreaterEqual:
		c.chunk.Emit(vm.OpGreaterEqual, op.Line)
	case TokenLess:
		c.chunk.Emit(vm.OpLess, op.Line)
	case TokenLessEqual:
		c.chunk.Emit(vm.OpLessEqual, op.Line)
	}
}

func (c *compiler) number() {
	f, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.errorAt(c.previous, "invalid number literal")
		return
	}
	c.emitConstant(vm.FromNumber(f))
}

// stringLiteral allocates the literal's contents in the heap and emits a
// constant referencing it. No program runs during compilation, so the
// collector leaves the fresh resident alone until the chunk's pool roots
// it at execution time.
func (c *compiler) stringLiteral() {
	s := c.heap.NewStringFrom([]byte(c.previous.Lexeme))
	c.emitConstant(vm.FromStringID(s.ID()))
}

func (c *compiler) literal() {
	switch c.previous.Type {
	case TokenTrue:
		c.chunk.Emit(vm.OpTrue, c.previous.Line)
	case TokenFalse:
		c.chunk.Emit(vm.OpFalse, c.previous.Line)
	case TokenNil:
		c.chunk.Emit(vm.OpNil, c.previous.Line)
	}
}

func (c *compiler) emitConstant(v vm.Value) {
	if err := c.chunk.EmitConstant(v, c.previous.Line); err != nil {
		c.errorAt(c.previous, err.Error())
	}
}
