package vm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// VM: The zlox Virtual Machine
// ---------------------------------------------------------------------------

// CompileFunc turns source text into bytecode, allocating literal strings
// in heap. The VM invokes it from Interpret; keeping it a hook means the
// VM package does not depend on the compiler package.
type CompileFunc func(source string, chunk *Chunk, heap *Heap) error

// DefaultStackSize is the value stack capacity used when Config.StackSize
// is zero.
const DefaultStackSize = 256

// Config controls a VM instance.
type Config struct {
	StackSize int       // value stack capacity; DefaultStackSize if 0
	HeapLimit int       // max live heap residents; 0 means unbounded
	StressGC  bool      // run a collection cycle before every allocation
	Stdout    io.Writer // print destination; os.Stdout if nil
}

// VM executes zlox bytecode. A VM owns its heap and may run any number of
// chunks over its lifetime; heap residents survive across runs until a
// collection finds them unreachable.
type VM struct {
	chunk *Chunk // chunk being executed; nil when idle
	ip    int
	stack []Value
	sp    int

	heap    *Heap
	compile CompileFunc
	out     io.Writer
	running bool
}

// New creates a VM with its own heap.
func New(cfg Config) *VM {
	size := cfg.StackSize
	if size <= 0 {
		size = DefaultStackSize
	}
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}
	vm := &VM{
		stack: make([]Value, size),
		heap:  NewHeap(),
		out:   out,
	}
	vm.heap.SetRoots(vm)
	vm.heap.SetStress(cfg.StressGC)
	vm.heap.SetLimit(cfg.HeapLimit)
	return vm
}

// Heap returns the VM's heap.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// UseCompiler installs the compiler invoked by Interpret.
func (vm *VM) UseCompiler(fn CompileFunc) {
	vm.compile = fn
}

// Close releases every heap resident. The VM must not be used afterwards.
func (vm *VM) Close() {
	vm.heap.Reset()
}

// Interpret compiles source into a fresh chunk and runs it. Compile errors
// are returned before any bytecode executes. The chunk is dropped when
// execution finishes, so its constants become garbage for the next
// collection cycle.
func (vm *VM) Interpret(source string) error {
	if vm.compile == nil {
		return fmt.Errorf("vm: no compiler installed")
	}
	chunk := NewChunk()
	if err := vm.compile(source, chunk, vm.heap); err != nil {
		return err
	}
	return vm.Run(chunk)
}

// Run executes a compiled chunk. The chunk is borrowed for the duration
// of the call; the VM holds no reference to it afterwards.
func (vm *VM) Run(chunk *Chunk) error {
	vm.chunk = chunk
	vm.ip = 0
	vm.sp = 0
	vm.running = true
	defer func() {
		vm.running = false
		vm.chunk = nil
	}()
	return vm.run()
}

// ---------------------------------------------------------------------------
// Collector roots
// ---------------------------------------------------------------------------

// Running reports whether bytecode is currently executing.
func (vm *VM) Running() bool {
	return vm.running
}

// Roots appends the collector roots: the active chunk's constant pool and
// every value on the evaluation stack.
func (vm *VM) Roots(dst []Value) []Value {
	if vm.chunk != nil {
		dst = append(dst, vm.chunk.Constants...)
	}
	dst = append(dst, vm.stack[:vm.sp]...)
	return dst
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

func (vm *VM) run() error {
	for {
		if vm.ip >= len(vm.chunk.Code) {
			return vm.errorf(BadInstruction, vm.chunk.Line(len(vm.chunk.Code)-1), "ran off the end of the bytecode")
		}
		line := vm.chunk.Line(vm.ip)
		op := Opcode(vm.chunk.Code[vm.ip])
		vm.ip++

		switch op {
		case OpReturn:
			return nil

		case OpConstant:
			if vm.ip+2 > len(vm.chunk.Code) {
				return vm.errorf(BadInstruction, line, "truncated constant operand")
			}
			idx := vm.chunk.ConstantIndex(vm.ip)
			vm.ip += 2
			if idx >= len(vm.chunk.Constants) {
				return vm.errorf(BadInstruction, line, "constant index %d out of range", idx)
			}
			if err := vm.push(vm.chunk.Constants[idx], line); err != nil {
				return err
			}

		case OpTrue:
			if err := vm.push(True, line); err != nil {
				return err
			}

		case OpFalse:
			if err := vm.push(False, line); err != nil {
				return err
			}

		case OpNil:
			if err := vm.push(Nil, line); err != nil {
				return err
			}

		case OpPop:
			if vm.sp < 1 {
				return vm.errorf(StackUnderflow, line, "stack underflow")
			}
			vm.sp--

		case OpPrint:
			if vm.sp < 1 {
				return vm.errorf(StackUnderflow, line, "stack underflow")
			}
			vm.sp--
			fmt.Fprintln(vm.out, vm.render(vm.stack[vm.sp]))

		case OpNeg:
			if vm.sp < 1 {
				return vm.errorf(StackUnderflow, line, "stack underflow")
			}
			v := vm.stack[vm.sp-1]
			if !v.IsNumber() {
				return vm.errorf(BadOperand, line, "operand of '-' must be a number, got %s", v.Kind())
			}
			vm.stack[vm.sp-1] = FromNumber(-v.Number())

		case OpNot:
			if vm.sp < 1 {
				return vm.errorf(StackUnderflow, line, "stack underflow")
			}
			v := vm.stack[vm.sp-1]
			if !v.IsBool() {
				return vm.errorf(BadOperand, line, "operand of 'not' must be a boolean, got %s", v.Kind())
			}
			vm.stack[vm.sp-1] = FromBool(!v.Bool())

		case OpAdd, OpSub, OpMul, OpDiv, OpAnd, OpOr, OpXor,
			OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
			if err := vm.binary(op, line); err != nil {
				return err
			}

		default:
			return vm.errorf(BadInstruction, line, "unknown opcode 0x%02X", byte(op))
		}
	}
}

// binary executes a two-operand instruction. Operands are peeked, not
// popped, so they stay visible to the collector while the result is
// computed; both are then replaced by the single result.
func (vm *VM) binary(op Opcode, line int) *RuntimeError {
	if vm.sp < 2 {
		return vm.errorf(StackUnderflow, line, "stack underflow")
	}
	a := vm.stack[vm.sp-2]
	b := vm.stack[vm.sp-1]
	sym := binarySymbols[op]

	var res Value
	switch op {
	case OpAdd:
		switch {
		case a.IsNumber() && b.IsNumber():
			res = FromNumber(a.Number() + b.Number())
		case a.IsString() && b.IsString():
			s := vm.heap.NewString()
			s.Append(vm.stringBytes(a))
			s.Append(vm.stringBytes(b))
			res = FromStringID(s.ID())
		case a.Kind() != b.Kind():
			return vm.errorf(TypeMismatch, line, "operands of '+' must share a type, got %s and %s", a.Kind(), b.Kind())
		default:
			return vm.errorf(BadOperand, line, "'+' is not defined for %s", a.Kind())
		}

	case OpMul:
		switch {
		case a.IsNumber() && b.IsNumber():
			res = FromNumber(a.Number() * b.Number())
		case a.IsString() && b.IsNumber():
			// String repetition. The count truncates toward zero; zero or
			// negative counts give the empty string. Note that the mirror
			// form (number * string) stays an error.
			s := vm.heap.NewString()
			s.AppendRepeat(vm.stringBytes(a), int(b.Number()))
			res = FromStringID(s.ID())
		case a.Kind() != b.Kind():
			return vm.errorf(TypeMismatch, line, "operands of '*' must share a type, got %s and %s", a.Kind(), b.Kind())
		default:
			return vm.errorf(BadOperand, line, "'*' is not defined for %s", a.Kind())
		}

	case OpSub, OpDiv:
		switch {
		case a.IsNumber() && b.IsNumber():
			if op == OpSub {
				res = FromNumber(a.Number() - b.Number())
			} else {
				res = FromNumber(a.Number() / b.Number())
			}
		case a.Kind() != b.Kind():
			return vm.errorf(TypeMismatch, line, "operands of '%s' must share a type, got %s and %s", sym, a.Kind(), b.Kind())
		default:
			return vm.errorf(BadOperand, line, "'%s' is not defined for %s", sym, a.Kind())
		}

	case OpAnd, OpOr, OpXor:
		switch {
		case a.IsBool() && b.IsBool():
			x, y := a.Bool(), b.Bool()
			switch op {
			case OpAnd:
				res = FromBool(x && y)
			case OpOr:
				res = FromBool(x || y)
			default:
				res = FromBool(x != y)
			}
		case a.Kind() != b.Kind():
			return vm.errorf(TypeMismatch, line, "operands of '%s' must share a type, got %s and %s", sym, a.Kind(), b.Kind())
		default:
			return vm.errorf(BadOperand, line, "'%s' is not defined for %s", sym, a.Kind())
		}

	case OpEqual, OpNotEqual:
		if a.Kind() != b.Kind() {
			return vm.errorf(NotComparable, line, "cannot compare %s with %s", a.Kind(), b.Kind())
		}
		eq := vm.valuesEqual(a, b)
		if op == OpNotEqual {
			eq = !eq
		}
		res = FromBool(eq)

	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		if a.Kind() != b.Kind() {
			return vm.errorf(NotComparable, line, "cannot compare %s with %s", a.Kind(), b.Kind())
		}
		switch {
		case a.IsNumber():
			x, y := a.Number(), b.Number()
			switch op {
			case OpGreater:
				res = FromBool(x > y)
			case OpGreaterEqual:
				res = FromBool(x >= y)
			case OpLess:
				res = FromBool(x < y)
			default:
				res = FromBool(x <= y)
			}
		case a.IsString():
			cmp := bytes.Compare(vm.stringBytes(a), vm.stringBytes(b))
			switch op {
			case OpGreater:
				res = FromBool(cmp > 0)
			case OpGreaterEqual:
				res = FromBool(cmp >= 0)
			case OpLess:
				res = FromBool(cmp < 0)
			default:
				res = FromBool(cmp <= 0)
			}
		default:
			return vm.errorf(NotOrdered, line, "%s values have no order", a.Kind())
		}
	}

	vm.sp--
	vm.stack[vm.sp-1] = res
	return nil
}

// binarySymbols maps binary opcodes to their source-level spelling for
// error messages.
var binarySymbols = map[Opcode]string{
	OpAdd:          "+",
	OpSub:          "-",
	OpMul:          "*",
	OpDiv:          "/",
	OpAnd:          "and",
	OpOr:           "or",
	OpXor:          "xor",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpLess:         "<",
	OpLessEqual:    "<=",
}

// valuesEqual implements == for two values of the same kind. Strings
// compare by content, objects by identity.
func (vm *VM) valuesEqual(a, b Value) bool {
	switch {
	case a.IsNumber():
		return a.Number() == b.Number()
	case a.IsString():
		return bytes.Equal(vm.stringBytes(a), vm.stringBytes(b))
	case a.IsObject():
		return a.ObjectID() == b.ObjectID()
	default:
		return a == b
	}
}

func (vm *VM) push(v Value, line int) *RuntimeError {
	if vm.sp >= len(vm.stack) {
		return vm.errorf(StackOverflow, line, "stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) errorf(kind ErrorKind, line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// stringBytes resolves a string value to its contents. A stale handle is
// an internal invariant violation, not a user-level error.
func (vm *VM) stringBytes(v Value) []byte {
	s := vm.heap.String(v.StringID())
	if s == nil {
		panic("vm: stale string handle")
	}
	return s.Bytes()
}

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

// render formats a value the way OpPrint shows it: numbers in shortest
// round-trip form, strings quoted, objects as an indented property listing.
func (vm *VM) render(v Value) string {
	var b strings.Builder
	vm.renderValue(&b, v, 0, nil)
	return b.String()
}

func (vm *VM) renderValue(b *strings.Builder, v Value, depth int, seen map[uint32]bool) {
	switch {
	case v.IsNumber():
		b.WriteString(strconv.FormatFloat(v.Number(), 'g', -1, 64))

	case v.IsString():
		// Contents are printed raw; source escapes were never decoded.
		b.WriteByte('"')
		b.Write(vm.stringBytes(v))
		b.WriteByte('"')

	case v.IsObject():
		id := v.ObjectID()
		o := vm.heap.Object(id)
		if o == nil {
			panic("vm: stale object handle")
		}
		if seen == nil {
			seen = make(map[uint32]bool)
		}
		if seen[id] {
			// Already on the rendering path: the graph is cyclic.
			b.WriteString("{...}")
			return
		}
		names := o.Names()
		if len(names) == 0 {
			b.WriteString("{}")
			return
		}
		seen[id] = true
		b.WriteString("{\n")
		pad := strings.Repeat("  ", depth+1)
		for _, name := range names {
			fv, _ := o.Get(name)
			b.WriteString(pad)
			b.WriteString(name)
			b.WriteString(": ")
			vm.renderValue(b, fv, depth+1, seen)
			b.WriteString(",\n")
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteByte('}')
		delete(seen, id)

	case v.IsBool():
		b.WriteString(strconv.FormatBool(v.Bool()))

	default:
		b.WriteString("nil")
	}
}
