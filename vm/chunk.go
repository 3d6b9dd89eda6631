package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies one VM instruction.
//
// The numeric values are part of the serialized program format and must
// never be reordered. New opcodes go at the end, before opcodeCount.
type Opcode byte

const (
	OpReturn   Opcode = iota // end execution of the chunk
	OpConstant               // push constant (16-bit pool index)
	OpTrue                   // push true
	OpFalse                  // push false
	OpNil                    // push nil
	OpAdd                    // numeric add / string concatenation
	OpSub                    // numeric subtract
	OpMul                    // numeric multiply / string repeat
	OpDiv                    // numeric divide
	OpNeg                    // numeric negate
	OpNot                    // boolean not
	OpAnd                    // boolean and
	OpOr                     // boolean or
	OpXor                    // boolean xor
	OpEqual                  // equality
	OpNotEqual               // negated equality
	OpGreater                // ordering >
	OpGreaterEqual           // ordering >=
	OpLess                   // ordering <
	OpLessEqual              // ordering <=
	OpPrint                  // pop and print top of stack
	OpPop                    // discard top of stack

	opcodeCount // sentinel, not a real instruction
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo carries what the disassembler needs to decode an
// instruction: its printed name and how many operand bytes follow it.
type OpcodeInfo struct {
	Name         string
	OperandBytes int
}

// opcodeTable is indexed by ordinal. Only OpConstant takes an operand.
var opcodeTable = [opcodeCount]OpcodeInfo{
	OpReturn:       {"RETURN", 0},
	OpConstant:     {"CONSTANT", 2},
	OpTrue:         {"TRUE", 0},
	OpFalse:        {"FALSE", 0},
	OpNil:          {"NIL", 0},
	OpAdd:          {"ADD", 0},
	OpSub:          {"SUB", 0},
	OpMul:          {"MUL", 0},
	OpDiv:          {"DIV", 0},
	OpNeg:          {"NEG", 0},
	OpNot:          {"NOT", 0},
	OpAnd:          {"AND", 0},
	OpOr:           {"OR", 0},
	OpXor:          {"XOR", 0},
	OpEqual:        {"EQUAL", 0},
	OpNotEqual:     {"NOT_EQUAL", 0},
	OpGreater:      {"GREATER", 0},
	OpGreaterEqual: {"GREATER_EQUAL", 0},
	OpLess:         {"LESS", 0},
	OpLessEqual:    {"LESS_EQUAL", 0},
	OpPrint:        {"PRINT", 0},
	OpPop:          {"POP", 0},
}

// Info returns the decode metadata for op. Bytes that are not
// instructions get an ILLEGAL_ name rather than an error, since the
// disassembler has to print whatever is in the stream.
func (op Opcode) Info() OpcodeInfo {
	if op < opcodeCount {
		return opcodeTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("ILLEGAL_%02X", byte(op))}
}

// Name returns the printed name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Chunk: a compiled unit of bytecode
// ---------------------------------------------------------------------------

// MaxConstants is the size limit of a chunk's constant pool, fixed by the
// 16-bit operand of OpConstant.
const MaxConstants = 65536

// Chunk is a compiled program: a flat instruction stream, its constant
// pool, and the source line each code byte came from. Lines runs parallel
// to Code so runtime errors can name the offending source line.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]byte, 0, 64),
		Lines: make([]int, 0, 64),
	}
}

// Len returns the current length of the instruction stream.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Emit appends an opcode with no operands.
func (c *Chunk) Emit(op Opcode, line int) {
	c.Code = append(c.Code, byte(op))
	c.Lines = append(c.Lines, line)
}

// AddConstant adds v to the constant pool and returns its index.
// Fails once the pool is full.
func (c *Chunk) AddConstant(v Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("too many constants in one chunk (limit %d)", MaxConstants)
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// EmitConstant adds v to the constant pool and emits an OpConstant
// instruction pushing it. The 16-bit pool index is encoded little-endian.
func (c *Chunk) EmitConstant(v Value, line int) error {
	idx, err := c.AddConstant(v)
	if err != nil {
		return err
	}
	c.Code = append(c.Code, byte(OpConstant), byte(idx), byte(idx>>8))
	c.Lines = append(c.Lines, line, line, line)
	return nil
}

// ConstantIndex decodes the OpConstant operand at the given code offset.
func (c *Chunk) ConstantIndex(offset int) int {
	return int(binary.LittleEndian.Uint16(c.Code[offset:]))
}

// Line returns the source line for the code byte at offset, or 0 if the
// offset is out of range.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
