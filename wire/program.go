// Package wire defines the serialized form of compiled zlox programs.
// A Program is a self-contained CBOR document: bytecode, line table, and
// a portable constant pool. Heap slot ids never cross the wire; string
// constants travel by content and are re-allocated on load.
package wire

// FormatVersion is the current program format. Readers reject documents
// written by any other format.
const FormatVersion = 1

// constantKind tags one entry of the serialized constant pool.
type constantKind uint8

const (
	constNumber constantKind = 1
	constString constantKind = 2
	constBool   constantKind = 3
	constNil    constantKind = 4
)

// Constant is one portable constant pool entry. Exactly one payload
// field is meaningful, selected by Kind.
type Constant struct {
	Kind   constantKind `cbor:"1,keyasint"`
	Number float64      `cbor:"2,keyasint,omitempty"`
	Text   []byte       `cbor:"3,keyasint,omitempty"`
	Flag   bool         `cbor:"4,keyasint,omitempty"`
}

// Program is a compiled chunk in portable form, plus the hash of the
// source it was compiled from. The hash keys the build cache and lets a
// loader detect stale artifacts.
type Program struct {
	Version    byte       `cbor:"1,keyasint"`
	Code       []byte     `cbor:"2,keyasint"`
	Lines      []int      `cbor:"3,keyasint,omitempty"`
	Constants  []Constant `cbor:"4,keyasint,omitempty"`
	SourceHash [32]byte   `cbor:"5,keyasint"`
}
