package vm

import "math"

// Value is a NaN-boxed zlox value.
//
// A Value holds the bits of an IEEE 754 double. Numbers are stored as
// themselves. Everything else hides in the quiet-NaN space: the quiet
// NaN prefix plus a tag selects the type, and the low 48 bits carry the
// payload.
//
//	Number   native double bits
//	String   nanBits | tagString | heap slot id
//	Object   nanBits | tagObject | heap slot id
//	Special  nanBits | tagSpecial | singleton id
//
// Heap references carry a slot id rather than a machine pointer, so a
// Value never keeps the referenced resident alive by itself. Only the
// Heap can resolve an id back to its resident.
type Value uint64

const (
	// Exponent all 1s with the quiet bit set. Anything carrying this
	// prefix and a nonzero tag is not a number.
	nanBits uint64 = 0x7FF8000000000000

	// Three tag bits directly below the quiet bit.
	tagMask uint64 = 0x0007000000000000

	// The low 48 bits hold a slot id or singleton id.
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagString  uint64 = 0x0001000000000000
	tagObject  uint64 = 0x0002000000000000
	tagSpecial uint64 = 0x0003000000000000
)

// The singletons. nil, true and false are fixed bit patterns, so value
// equality is bit equality for them.
const (
	Nil   Value = Value(nanBits | tagSpecial | 0)
	True  Value = Value(nanBits | tagSpecial | 1)
	False Value = Value(nanBits | tagSpecial | 2)
)

// Kind identifies the runtime type of a Value. It is what error messages
// and comparison rules are phrased in terms of.
type Kind uint8

const (
	KindNumber Kind = iota
	KindBool
	KindNil
	KindString
	KindObject
)

var kindNames = map[Kind]string{
	KindNumber: "number",
	KindBool:   "boolean",
	KindNil:    "nil",
	KindString: "string",
	KindObject: "object",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNumber reports whether v holds a float64. Infinities, signaling
// NaNs and the untagged quiet NaN that arithmetic produces all count as
// numbers. Only a quiet NaN carrying a tag is a boxed value.
func (v Value) IsNumber() bool {
	bits := uint64(v)
	return bits&nanBits != nanBits || bits&tagMask == 0
}

// IsString returns true if v references a heap string.
func (v Value) IsString() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagString)
}

// IsObject returns true if v references a heap object.
func (v Value) IsObject() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// Kind returns the runtime type of v.
func (v Value) Kind() Kind {
	switch {
	case v.IsNumber():
		return KindNumber
	case v.IsString():
		return KindString
	case v.IsObject():
		return KindObject
	case v.IsBool():
		return KindBool
	default:
		return KindNil
	}
}

// ---------------------------------------------------------------------------
// Number operations
// ---------------------------------------------------------------------------

// Number returns v as a float64.
// Panics if v is not a number.
func (v Value) Number() float64 {
	if !v.IsNumber() {
		panic("Value.Number: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// FromNumber creates a Value from a float64.
func FromNumber(f float64) Value {
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Heap reference operations
// ---------------------------------------------------------------------------

// StringID returns the heap slot id encoded in a string value.
// Panics if v is not a string.
func (v Value) StringID() uint32 {
	if !v.IsString() {
		panic("Value.StringID: not a string")
	}
	return uint32(uint64(v) & payloadMask)
}

// FromStringID creates a string Value from a heap slot id.
func FromStringID(id uint32) Value {
	return Value(nanBits | tagString | uint64(id))
}

// ObjectID returns the heap slot id encoded in an object value.
// Panics if v is not an object.
func (v Value) ObjectID() uint32 {
	if !v.IsObject() {
		panic("Value.ObjectID: not an object")
	}
	return uint32(uint64(v) & payloadMask)
}

// FromObjectID creates an object Value from a heap slot id.
func FromObjectID(id uint32) Value {
	return Value(nanBits | tagObject | uint64(id))
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	if !v.IsBool() {
		panic("Value.Bool: not a boolean")
	}
	return v == True
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}
