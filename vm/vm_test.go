package vm

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

// runChunk executes a hand-built chunk on a fresh VM and returns the
// printed output. build receives the chunk and the VM's heap so string
// constants can be allocated.
func runChunk(t *testing.T, cfg Config, build func(c *Chunk, h *Heap)) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Stdout = &buf
	machine := New(cfg)
	chunk := NewChunk()
	build(chunk, machine.Heap())
	err := machine.Run(chunk)
	return buf.String(), err
}

func emitConst(t *testing.T, c *Chunk, v Value) {
	t.Helper()
	if err := c.EmitConstant(v, 1); err != nil {
		t.Fatal(err)
	}
}

// wantRuntimeError asserts err is a RuntimeError of the given kind.
func wantRuntimeError(t *testing.T, err error, kind ErrorKind) *RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatal("expected runtime error, got nil")
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T, want *RuntimeError", err)
	}
	if re.Kind != kind {
		t.Fatalf("error kind = %v, want %v (message %q)", re.Kind, kind, re.Message)
	}
	return re
}

// ---------------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------------

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		op   Opcode
		want string
	}{
		{"add", 1, 2, OpAdd, "3"},
		{"sub", 5, 3.5, OpSub, "1.5"},
		{"mul", 4, 2.5, OpMul, "10"},
		{"div", 7, 2, OpDiv, "3.5"},
		{"div by zero", 1, 0, OpDiv, "+Inf"},
		{"negative div by zero", -1, 0, OpDiv, "-Inf"},
		{"float noise", 0.1, 0.2, OpAdd, "0.30000000000000004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, FromNumber(tt.a))
				emitConst(t, c, FromNumber(tt.b))
				c.Emit(tt.op, 1)
				c.Emit(OpPrint, 1)
				c.Emit(OpReturn, 1)
			})
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want+"\n" {
				t.Errorf("output = %q, want %q", out, tt.want+"\n")
			}
		})
	}
}

func TestRunComparisons(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		op   Opcode
		want string
	}{
		{"less", 1, 2, OpLess, "true"},
		{"less equal", 2, 2, OpLessEqual, "true"},
		{"greater", 1, 2, OpGreater, "false"},
		{"greater equal", 2, 2, OpGreaterEqual, "true"},
		{"equal", 3, 3, OpEqual, "true"},
		{"not equal", 3, 3, OpNotEqual, "false"},
		{"zero equals negative zero", 0, math.Copysign(0, -1), OpEqual, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, FromNumber(tt.a))
				emitConst(t, c, FromNumber(tt.b))
				c.Emit(tt.op, 1)
				c.Emit(OpPrint, 1)
				c.Emit(OpReturn, 1)
			})
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want+"\n" {
				t.Errorf("output = %q, want %q", out, tt.want+"\n")
			}
		})
	}
}

func TestNaNNeverEqualsItself(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromNumber(math.NaN()))
		emitConst(t, c, FromNumber(math.NaN()))
		c.Emit(OpEqual, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "false\n" {
		t.Errorf("output = %q, want false", out)
	}
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

func TestRunBooleanOps(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		op   Opcode
		want string
	}{
		{"and", True, False, OpAnd, "false"},
		{"and both", True, True, OpAnd, "true"},
		{"or", True, False, OpOr, "true"},
		{"or neither", False, False, OpOr, "false"},
		{"xor", True, False, OpXor, "true"},
		{"xor both", True, True, OpXor, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, tt.a)
				emitConst(t, c, tt.b)
				c.Emit(tt.op, 1)
				c.Emit(OpPrint, 1)
				c.Emit(OpReturn, 1)
			})
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want+"\n" {
				t.Errorf("output = %q, want %q", out, tt.want+"\n")
			}
		})
	}
}

func TestRunUnary(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromNumber(5))
		c.Emit(OpNeg, 1)
		c.Emit(OpPrint, 1)
		emitConst(t, c, False)
		c.Emit(OpNot, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "-5\ntrue\n" {
		t.Errorf("output = %q, want -5 then true", out)
	}
}

func TestRunUnaryTypeErrors(t *testing.T) {
	_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		s := h.NewStringFrom([]byte("x"))
		emitConst(t, c, FromStringID(s.ID()))
		c.Emit(OpNeg, 1)
		c.Emit(OpReturn, 1)
	})
	re := wantRuntimeError(t, err, BadOperand)
	if !strings.Contains(re.Message, "'-'") {
		t.Errorf("message = %q, want the operator named", re.Message)
	}

	_, err = runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromNumber(1))
		c.Emit(OpNot, 1)
		c.Emit(OpReturn, 1)
	})
	wantRuntimeError(t, err, BadOperand)
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func TestRunStringConcat(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte("hello")).ID()))
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte("world")).ID()))
		c.Emit(OpAdd, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "\"helloworld\"\n" {
		t.Errorf("output = %q, want quoted helloworld", out)
	}
}

func TestRunStringRepeat(t *testing.T) {
	tests := []struct {
		name  string
		count float64
		want  string
	}{
		{"three", 3, `"ababab"`},
		{"zero", 0, `""`},
		{"negative", -2, `""`},
		{"truncates", 2.9, `"abab"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, FromStringID(h.NewStringFrom([]byte("ab")).ID()))
				emitConst(t, c, FromNumber(tt.count))
				c.Emit(OpMul, 1)
				c.Emit(OpPrint, 1)
				c.Emit(OpReturn, 1)
			})
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want+"\n" {
				t.Errorf("output = %q, want %q", out, tt.want+"\n")
			}
		})
	}
}

// number * string stays an error even though string * number repeats.
func TestRunRepeatIsAsymmetric(t *testing.T) {
	_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromNumber(3))
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte("ab")).ID()))
		c.Emit(OpMul, 1)
		c.Emit(OpReturn, 1)
	})
	wantRuntimeError(t, err, TypeMismatch)
}

func TestRunStringOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		op   Opcode
		want string
	}{
		{"less", "apple", "banana", OpLess, "true"},
		{"greater", "apple", "banana", OpGreater, "false"},
		{"prefix orders first", "ab", "abc", OpLess, "true"},
		{"equal le", "same", "same", OpLessEqual, "true"},
		{"byte order", "Z", "a", OpLess, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, FromStringID(h.NewStringFrom([]byte(tt.a)).ID()))
				emitConst(t, c, FromStringID(h.NewStringFrom([]byte(tt.b)).ID()))
				c.Emit(tt.op, 1)
				c.Emit(OpPrint, 1)
				c.Emit(OpReturn, 1)
			})
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want+"\n" {
				t.Errorf("output = %q, want %q", out, tt.want+"\n")
			}
		})
	}
}

func TestRunStringEqualityByContent(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		// Two distinct residents with the same contents.
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte("same")).ID()))
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte("same")).ID()))
		c.Emit(OpEqual, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "true\n" {
		t.Errorf("output = %q, want true (strings compare by content)", out)
	}
}

// ---------------------------------------------------------------------------
// Type error classification
// ---------------------------------------------------------------------------

func TestRunBinaryTypeErrors(t *testing.T) {
	num := func(f float64) func(h *Heap) Value {
		return func(*Heap) Value { return FromNumber(f) }
	}
	str := func(s string) func(h *Heap) Value {
		return func(h *Heap) Value { return FromStringID(h.NewStringFrom([]byte(s)).ID()) }
	}
	lit := func(v Value) func(h *Heap) Value {
		return func(*Heap) Value { return v }
	}

	tests := []struct {
		name string
		a, b func(h *Heap) Value
		op   Opcode
		kind ErrorKind
	}{
		{"number plus string", num(1), str("a"), OpAdd, TypeMismatch},
		{"nil plus nil", lit(Nil), lit(Nil), OpAdd, BadOperand},
		{"bool minus bool", lit(True), lit(False), OpSub, BadOperand},
		{"string minus string", str("a"), str("b"), OpSub, BadOperand},
		{"string divided", str("a"), str("b"), OpDiv, BadOperand},
		{"and on numbers", num(1), num(2), OpAnd, BadOperand},
		{"and across types", lit(True), num(1), OpAnd, TypeMismatch},
		{"equal across types", num(1), str("a"), OpEqual, NotComparable},
		{"not equal across types", lit(Nil), lit(False), OpNotEqual, NotComparable},
		{"less on booleans", lit(True), lit(False), OpLess, NotOrdered},
		{"greater on nil", lit(Nil), lit(Nil), OpGreater, NotOrdered},
		{"less across types", num(1), str("a"), OpLess, NotComparable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				emitConst(t, c, tt.a(h))
				emitConst(t, c, tt.b(h))
				c.Emit(tt.op, 1)
				c.Emit(OpReturn, 1)
			})
			wantRuntimeError(t, err, tt.kind)
		})
	}
}

func TestNilEqualsNil(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		c.Emit(OpNil, 1)
		c.Emit(OpNil, 1)
		c.Emit(OpEqual, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "true\n" {
		t.Errorf("output = %q, want true", out)
	}
}

func TestObjectEqualityByIdentity(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		a := h.NewObject()
		b := h.NewObject()
		emitConst(t, c, FromObjectID(a.ID()))
		emitConst(t, c, FromObjectID(a.ID()))
		c.Emit(OpEqual, 1)
		c.Emit(OpPrint, 1)
		emitConst(t, c, FromObjectID(a.ID()))
		emitConst(t, c, FromObjectID(b.ID()))
		c.Emit(OpEqual, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "true\nfalse\n" {
		t.Errorf("output = %q, want true then false", out)
	}
}

func TestObjectsHaveNoOrder(t *testing.T) {
	_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		a := h.NewObject()
		emitConst(t, c, FromObjectID(a.ID()))
		emitConst(t, c, FromObjectID(a.ID()))
		c.Emit(OpLess, 1)
		c.Emit(OpReturn, 1)
	})
	re := wantRuntimeError(t, err, NotOrdered)
	if !strings.Contains(re.Message, "object") {
		t.Errorf("message = %q, want the kind named", re.Message)
	}
}

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

func TestPrintSpecialValues(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		c.Emit(OpNil, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpTrue, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpFalse, 1)
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "nil\ntrue\nfalse\n" {
		t.Errorf("output = %q", out)
	}
}

// Escape sequences are never decoded, so the contents print exactly as
// they appeared in the source.
func TestPrintStringKeepsEscapesRaw(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromStringID(h.NewStringFrom([]byte(`a\"b\n`)).ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "\"a\\\"b\\n\"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPrintObject(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		o := h.NewObject()
		o.Set("version", FromNumber(1))
		o.Set("name", FromStringID(h.NewStringFrom([]byte("zlox")).ID()))
		emitConst(t, c, FromObjectID(o.ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	// Properties are sorted by name.
	want := "{\n  name: \"zlox\",\n  version: 1,\n}\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestPrintEmptyObject(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		emitConst(t, c, FromObjectID(h.NewObject().ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "{}\n" {
		t.Errorf("output = %q, want {}", out)
	}
}

func TestPrintNestedObject(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		inner := h.NewObject()
		inner.Set("x", FromNumber(1))
		outer := h.NewObject()
		outer.Set("inner", FromObjectID(inner.ID()))
		outer.Set("y", FromNumber(2))
		emitConst(t, c, FromObjectID(outer.ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "{\n" +
		"  inner: {\n" +
		"    x: 1,\n" +
		"  },\n" +
		"  y: 2,\n" +
		"}\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestPrintCyclicObject(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		a := h.NewObject()
		b := h.NewObject()
		a.Set("other", FromObjectID(b.ID()))
		b.Set("other", FromObjectID(a.ID()))
		emitConst(t, c, FromObjectID(a.ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "{\n" +
		"  other: {\n" +
		"    other: {...},\n" +
		"  },\n" +
		"}\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// A resident reachable along two paths is not a cycle and prints fully
// both times.
func TestPrintSharedObject(t *testing.T) {
	out, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		shared := h.NewObject()
		shared.Set("x", FromNumber(1))
		o := h.NewObject()
		o.Set("p", FromObjectID(shared.ID()))
		o.Set("q", FromObjectID(shared.ID()))
		emitConst(t, c, FromObjectID(o.ID()))
		c.Emit(OpPrint, 1)
		c.Emit(OpReturn, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "{\n" +
		"  p: {\n" +
		"    x: 1,\n" +
		"  },\n" +
		"  q: {\n" +
		"    x: 1,\n" +
		"  },\n" +
		"}\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// ---------------------------------------------------------------------------
// Stack and instruction faults
// ---------------------------------------------------------------------------

func TestStackOverflow(t *testing.T) {
	_, err := runChunk(t, Config{StackSize: 4}, func(c *Chunk, h *Heap) {
		for i := 0; i < 5; i++ {
			c.Emit(OpTrue, 1)
		}
		c.Emit(OpReturn, 1)
	})
	wantRuntimeError(t, err, StackOverflow)
}

func TestStackUnderflow(t *testing.T) {
	ops := []Opcode{OpAdd, OpPop, OpPrint, OpNeg, OpNot}
	for _, op := range ops {
		t.Run(op.Name(), func(t *testing.T) {
			_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
				c.Emit(op, 1)
				c.Emit(OpReturn, 1)
			})
			wantRuntimeError(t, err, StackUnderflow)
		})
	}
}

func TestBinaryUnderflowWithOneOperand(t *testing.T) {
	_, err := runChunk(t, Config{}, func(c *Chunk, h *Heap) {
		c.Emit(OpTrue, 1)
		c.Emit(OpAnd, 1)
		c.Emit(OpReturn, 1)
	})
	wantRuntimeError(t, err, StackUnderflow)
}

func TestBadInstructionFaults(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"unknown opcode", []byte{0xEE}},
		{"truncated constant", []byte{byte(OpConstant), 0}},
		{"constant index out of range", []byte{byte(OpConstant), 5, 0, byte(OpReturn)}},
		{"missing return", []byte{byte(OpTrue)}},
		{"empty chunk", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := New(Config{Stdout: &bytes.Buffer{}})
			chunk := &Chunk{Code: tt.code, Lines: make([]int, len(tt.code))}
			err := machine.Run(chunk)
			wantRuntimeError(t, err, BadInstruction)
		})
	}
}

func TestRuntimeErrorCarriesLine(t *testing.T) {
	var buf bytes.Buffer
	machine := New(Config{Stdout: &buf})
	chunk := NewChunk()
	if err := chunk.EmitConstant(FromNumber(1), 3); err != nil {
		t.Fatal(err)
	}
	if err := chunk.EmitConstant(True, 4); err != nil {
		t.Fatal(err)
	}
	chunk.Emit(OpAdd, 5)
	chunk.Emit(OpReturn, 5)

	err := machine.Run(chunk)
	re := wantRuntimeError(t, err, TypeMismatch)
	if re.Line != 5 {
		t.Errorf("Line = %d, want 5", re.Line)
	}
	if !strings.HasPrefix(re.Error(), "line 5:") {
		t.Errorf("Error() = %q, want line prefix", re.Error())
	}
}

// ---------------------------------------------------------------------------
// VM lifecycle
// ---------------------------------------------------------------------------

func TestInterpretWithoutCompiler(t *testing.T) {
	machine := New(Config{Stdout: &bytes.Buffer{}})
	err := machine.Interpret("print(1);")
	if err == nil || !strings.Contains(err.Error(), "no compiler installed") {
		t.Errorf("err = %v, want missing compiler error", err)
	}
}

func TestInterpretStopsOnCompileError(t *testing.T) {
	var buf bytes.Buffer
	machine := New(Config{Stdout: &buf})
	boom := errors.New("boom")
	machine.UseCompiler(func(source string, chunk *Chunk, heap *Heap) error {
		return boom
	})

	if err := machine.Interpret("anything"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want the compiler's error", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want none before a compile error", buf.String())
	}
}

func TestRootsCoverConstantsAndStack(t *testing.T) {
	machine := New(Config{})
	chunk := NewChunk()
	if _, err := chunk.AddConstant(FromStringID(7)); err != nil {
		t.Fatal(err)
	}
	machine.chunk = chunk
	machine.stack[0] = FromObjectID(9)
	machine.sp = 1

	roots := machine.Roots(nil)
	if len(roots) != 2 {
		t.Fatalf("roots = %v, want 2 entries", roots)
	}
	if roots[0].StringID() != 7 || roots[1].ObjectID() != 9 {
		t.Errorf("roots = %v, want string#7 and object#9", roots)
	}
}

func TestRunningFlagScopedToRun(t *testing.T) {
	machine := New(Config{Stdout: &bytes.Buffer{}})
	if machine.Running() {
		t.Error("Running() = true before Run")
	}
	chunk := NewChunk()
	chunk.Emit(OpReturn, 1)
	if err := machine.Run(chunk); err != nil {
		t.Fatal(err)
	}
	if machine.Running() {
		t.Error("Running() = true after Run returned")
	}
}

// Operands of a binary instruction stay on the stack while the result is
// allocated, so a collection in the middle of a concatenation must not
// sweep them.
func TestConcatSurvivesStressCollection(t *testing.T) {
	var buf bytes.Buffer
	machine := New(Config{StressGC: true, Stdout: &buf})
	chunk := NewChunk()
	h := machine.Heap()
	if err := chunk.EmitConstant(FromStringID(h.NewStringFrom([]byte("x")).ID()), 1); err != nil {
		t.Fatal(err)
	}
	if err := chunk.EmitConstant(FromStringID(h.NewStringFrom([]byte("y")).ID()), 1); err != nil {
		t.Fatal(err)
	}
	chunk.Emit(OpAdd, 1)
	chunk.Emit(OpPrint, 1)
	chunk.Emit(OpReturn, 1)

	if err := machine.Run(chunk); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\"xy\"\n" {
		t.Errorf("output = %q, want \"xy\"", got)
	}
	// Two pool literals plus the concatenation result.
	if h.Live() != 3 {
		t.Errorf("Live() = %d, want 3", h.Live())
	}
	if h.Collections() == 0 {
		t.Error("stress mode ran no collection cycles")
	}
}

func TestCloseReleasesHeap(t *testing.T) {
	machine := New(Config{Stdout: &bytes.Buffer{}})
	machine.Heap().NewStringFrom([]byte("x"))
	machine.Close()
	if machine.Heap().Live() != 0 {
		t.Errorf("Live() after Close = %d, want 0", machine.Heap().Live())
	}
}
