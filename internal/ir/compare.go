package ir

import (
	"bytes"
	"cmp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// rank orders values of different types: Bool < Int < Str < Bytes < Tuple < Set.
func rank(v Value) int {
	switch v.(type) {
	case Bool:
		return 0
	case Int:
		return 1
	case Str:
		return 2
	case Bytes:
		return 3
	case Tuple:
		return 4
	case Set:
		return 5
	default:
		return -1
	}
}

// Compare defines a total order over values.
// Values of different types order by type; tuples and sets compare
// member by member, shorter first on a common prefix. Strings compare in
// NFC form, the form they are encoded in.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch x := a.(type) {
	case Bool:
		y := b.(Bool)
		switch {
		case x == y:
			return 0
		case !bool(x):
			return -1
		default:
			return 1
		}
	case Int:
		return cmp.Compare(x, b.(Int))
	case Str:
		return strings.Compare(norm.NFC.String(string(x)), norm.NFC.String(string(b.(Str))))
	case Bytes:
		return bytes.Compare(x, b.(Bytes))
	case Tuple:
		return compareSeq(x, b.(Tuple))
	case Set:
		return compareSeq(x.elems, b.(Set).elems)
	default:
		return 0
	}
}

func compareSeq(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// Equal reports whether a and b are the same logical value.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}
