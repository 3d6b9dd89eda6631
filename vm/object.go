package vm

import "sort"

// ---------------------------------------------------------------------------
// Heap residents: strings and objects
// ---------------------------------------------------------------------------

// StringObject is a heap-resident mutable string. Strings are compared by
// content, not identity, so two distinct residents can be equal.
type StringObject struct {
	id   uint32
	data []byte
}

// ID returns the heap slot id of s.
func (s *StringObject) ID() uint32 {
	return s.id
}

// Bytes returns the string contents. The slice is borrowed; callers must
// not hold it across an Append.
func (s *StringObject) Bytes() []byte {
	return s.data
}

// String returns a copy of the contents as a Go string.
func (s *StringObject) String() string {
	return string(s.data)
}

// Len returns the length of the string in bytes.
func (s *StringObject) Len() int {
	return len(s.data)
}

// Append appends b to the string contents.
func (s *StringObject) Append(b []byte) {
	s.data = append(s.data, b...)
}

// AppendRepeat appends n copies of b to the string contents.
// A count of zero or less appends nothing.
func (s *StringObject) AppendRepeat(b []byte, n int) {
	for i := 0; i < n; i++ {
		s.data = append(s.data, b...)
	}
}

// MapObject is a heap-resident object: a mapping from property names to
// values. Objects are compared by identity (their slot id), never by
// structure. Property values may reference other heap residents, including
// the object itself.
type MapObject struct {
	id     uint32
	fields map[string]Value
}

// ID returns the heap slot id of o.
func (o *MapObject) ID() uint32 {
	return o.id
}

// Get returns the value of the named property.
func (o *MapObject) Get(name string) (Value, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// Set stores a property value, replacing any previous value.
func (o *MapObject) Set(name string, v Value) {
	o.fields[name] = v
}

// Len returns the number of properties.
func (o *MapObject) Len() int {
	return len(o.fields)
}

// Names returns the property names in sorted order, so that rendering and
// iteration are deterministic.
func (o *MapObject) Names() []string {
	names := make([]string, 0, len(o.fields))
	for name := range o.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
