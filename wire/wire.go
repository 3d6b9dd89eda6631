package wire

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cmourglia/zlox/vm"
)

// cborEncMode uses canonical options so the same program always encodes
// to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Hash returns the hash under which source is cached and verified.
func Hash(source []byte) [32]byte {
	return sha256.Sum256(source)
}

// FromChunk converts a compiled chunk into its portable form. String
// constants are resolved through heap and copied out by content; a chunk
// whose pool references objects cannot be serialized.
func FromChunk(c *vm.Chunk, heap *vm.Heap, sourceHash [32]byte) (*Program, error) {
	p := &Program{
		Version:    FormatVersion,
		Code:       append([]byte(nil), c.Code...),
		Lines:      append([]int(nil), c.Lines...),
		SourceHash: sourceHash,
	}

	p.Constants = make([]Constant, 0, len(c.Constants))
	for i, v := range c.Constants {
		switch {
		case v.IsNumber():
			p.Constants = append(p.Constants, Constant{Kind: constNumber, Number: v.Number()})
		case v.IsString():
			s := heap.String(v.StringID())
			if s == nil {
				return nil, fmt.Errorf("wire: constant %d references a reclaimed string", i)
			}
			p.Constants = append(p.Constants, Constant{Kind: constString, Text: append([]byte(nil), s.Bytes()...)})
		case v.IsBool():
			p.Constants = append(p.Constants, Constant{Kind: constBool, Flag: v.Bool()})
		case v.IsNil():
			p.Constants = append(p.Constants, Constant{Kind: constNil})
		default:
			return nil, fmt.Errorf("wire: constant %d has unserializable kind %s", i, v.Kind())
		}
	}
	return p, nil
}

// Chunk rebuilds an executable chunk, allocating string constants in
// heap. The caller keeps the chunk rooted for as long as it may run.
func (p *Program) Chunk(heap *vm.Heap) (*vm.Chunk, error) {
	if p.Version != FormatVersion {
		return nil, fmt.Errorf("wire: unsupported format version %d", p.Version)
	}
	if len(p.Lines) != len(p.Code) {
		return nil, fmt.Errorf("wire: line table length %d does not match code length %d", len(p.Lines), len(p.Code))
	}

	c := &vm.Chunk{
		Code:      append([]byte(nil), p.Code...),
		Lines:     append([]int(nil), p.Lines...),
		Constants: make([]vm.Value, 0, len(p.Constants)),
	}
	for i, k := range p.Constants {
		switch k.Kind {
		case constNumber:
			c.Constants = append(c.Constants, vm.FromNumber(k.Number))
		case constString:
			s := heap.NewStringFrom(k.Text)
			c.Constants = append(c.Constants, vm.FromStringID(s.ID()))
		case constBool:
			c.Constants = append(c.Constants, vm.FromBool(k.Flag))
		case constNil:
			c.Constants = append(c.Constants, vm.Nil)
		default:
			return nil, fmt.Errorf("wire: constant %d has unknown kind %d", i, k.Kind)
		}
	}
	return c, nil
}

// Marshal serializes a Program to CBOR bytes.
func Marshal(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// Unmarshal deserializes a Program from CBOR bytes.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	return &p, nil
}

// VerifySource checks that source is the text p was compiled from.
func VerifySource(p *Program, source []byte) error {
	computed := Hash(source)
	if computed != p.SourceHash {
		return fmt.Errorf("wire: hash mismatch: declared %x, computed %x", p.SourceHash, computed)
	}
	return nil
}
