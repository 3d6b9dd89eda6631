package vm

import "fmt"

// ErrorKind classifies the ways the dispatch loop can abort. Tests and
// embedders branch on the kind rather than on message text.
type ErrorKind uint8

const (
	TypeMismatch   ErrorKind = iota // binary operands of different types
	NotComparable                   // comparison across types
	NotOrdered                      // ordering on a type with no defined order
	BadOperand                      // operation undefined for the operand type
	StackOverflow                   // value stack capacity exceeded
	StackUnderflow                  // instruction needs more operands than the stack holds
	BadInstruction                  // corrupt or truncated bytecode
)

var errorKindNames = map[ErrorKind]string{
	TypeMismatch:   "type mismatch",
	NotComparable:  "incomparable types",
	NotOrdered:     "unordered type",
	BadOperand:     "invalid operand",
	StackOverflow:  "stack overflow",
	StackUnderflow: "stack underflow",
	BadInstruction: "bad instruction",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// RuntimeError is returned when bytecode execution aborts. Line is the
// source line of the failing instruction, taken from the chunk line table.
type RuntimeError struct {
	Kind    ErrorKind
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
