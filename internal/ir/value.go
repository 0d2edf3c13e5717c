package ir

import (
	"slices"
)

// Tag is the wire name of a reconstructable type.
type Tag string

// The closed allow-list of type tags. Decode fails on anything else.
const (
	TagString Tag = "s"
	TagInt    Tag = "i"
	TagBool   Tag = "b"
	TagBytes  Tag = "x"
	TagTuple  Tag = "t"
	TagSet    Tag = "f"
)

// Value is a sealed interface representing the reconstructable types.
// Only Str, Int, Bool, Bytes, Tuple and Set implement this.
type Value interface {
	irValue() // Sealed - only these types implement it
	Tag() Tag
}

// Str represents a string value.
type Str string

func (Str) irValue() {}

// Tag implements Value.
func (Str) Tag() Tag { return TagString }

// Int represents an integer value. Always int64, never float.
type Int int64

func (Int) irValue() {}

// Tag implements Value.
func (Int) Tag() Tag { return TagInt }

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Tag implements Value.
func (Bool) Tag() Tag { return TagBool }

// Bytes represents an opaque byte string, e.g. an engine-encoded template.
type Bytes []byte

func (Bytes) irValue() {}

// Tag implements Value.
func (Bytes) Tag() Tag { return TagBytes }

// Tuple represents an immutable ordered sequence.
type Tuple []Value

func (Tuple) irValue() {}

// Tag implements Value.
func (Tuple) Tag() Tag { return TagTuple }

// Set represents an immutable set. Members are kept sorted by Compare with
// duplicates removed, so two sets with the same members are encoded
// identically.
type Set struct {
	elems []Value
}

func (Set) irValue() {}

// Tag implements Value.
func (Set) Tag() Tag { return TagSet }

// NewSet creates a Set from values. Order of vals does not matter.
func NewSet(vals ...Value) Set {
	elems := slices.Clone(vals)
	slices.SortFunc(elems, Compare)
	elems = slices.CompactFunc(elems, func(a, b Value) bool {
		return Compare(a, b) == 0
	})
	return Set{elems: elems}
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.elems)
}

// Elems returns the members in canonical order.
func (s Set) Elems() []Value {
	return slices.Clone(s.elems)
}

// Strings builds a Tuple of Str values, preserving order.
func Strings(ss ...string) Tuple {
	t := make(Tuple, len(ss))
	for i, s := range ss {
		t[i] = Str(s)
	}
	return t
}

// StringSet builds a Set of Str values.
func StringSet(ss ...string) Set {
	return NewSet(Strings(ss...)...)
}

// AsStrings returns the members of a Tuple or Set as strings.
// Returns false if v is neither, or if any member is not a Str.
func AsStrings(v Value) ([]string, bool) {
	var elems []Value
	switch val := v.(type) {
	case Tuple:
		elems = val
	case Set:
		elems = val.elems
	default:
		return nil, false
	}

	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(Str)
		if !ok {
			return nil, false
		}
		out[i] = string(s)
	}
	return out, true
}
