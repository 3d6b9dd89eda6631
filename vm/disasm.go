package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction disassembles the instruction at the given offset.
// Returns the string representation and the offset of the next instruction.
// The chunk is never modified.
func DisassembleInstruction(c *Chunk, offset int) (string, int) {
	op := Opcode(c.Code[offset])
	info := op.Info()

	switch op {
	case OpConstant:
		if offset+2 >= len(c.Code) {
			return fmt.Sprintf("%04d %4d  %s <truncated>", offset, c.Line(offset), info.Name), len(c.Code)
		}
		idx := c.ConstantIndex(offset + 1)
		operand := "<bad index>"
		if idx < len(c.Constants) {
			operand = formatConstant(c.Constants[idx])
		}
		return fmt.Sprintf("%04d %4d  %s %d  ; %s", offset, c.Line(offset), info.Name, idx, operand), offset + 3

	default:
		next := offset + 1 + info.OperandBytes
		return fmt.Sprintf("%04d %4d  %s", offset, c.Line(offset), info.Name), next
	}
}

// Disassemble returns a full disassembly of a chunk. The name labels the
// listing, typically the source file.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		line, next := DisassembleInstruction(c, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// formatConstant renders a pool value without heap access. Heap references
// show their slot id since the disassembler only sees the chunk.
func formatConstant(v Value) string {
	switch {
	case v.IsNumber():
		return strconv.FormatFloat(v.Number(), 'g', -1, 64)
	case v.IsString():
		return fmt.Sprintf("string#%d", v.StringID())
	case v.IsObject():
		return fmt.Sprintf("object#%d", v.ObjectID())
	case v.IsBool():
		return strconv.FormatBool(v.Bool())
	default:
		return "nil"
	}
}
