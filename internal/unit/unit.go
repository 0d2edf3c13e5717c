package unit

import (
	"cmp"
	"slices"
)

// Identifier is the UID of a data unit. Identifiers order by byte value.
type Identifier string

// Kind distinguishes the three data unit kinds.
type Kind string

const (
	KindMolecule Kind = "molecule"
	KindOperator Kind = "operator"
	KindReaction Kind = "reaction"
)

// Unit is the capability shared by every data unit.
type Unit interface {
	// Kind returns the unit kind.
	Kind() Kind

	// UID returns the canonical identifier. It is a pure function of the
	// unit's logical content.
	UID() Identifier

	// Blob returns the binary serialization. It is deterministic for a
	// given logical content.
	Blob() ([]byte, error)
}

// Equal reports whether a and b are the same logical entity.
func Equal(a, b Unit) bool {
	return a.Kind() == b.Kind() && a.UID() == b.UID()
}

// Compare orders units of the same kind by UID.
// Units of different kinds are incomparable.
func Compare(a, b Unit) (int, error) {
	if a.Kind() != b.Kind() {
		return 0, &IncomparableError{Left: a.Kind(), Right: b.Kind()}
	}
	return cmp.Compare(a.UID(), b.UID()), nil
}

// SortIdentifiers returns a sorted copy of ids with duplicates removed.
func SortIdentifiers(ids []Identifier) []Identifier {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// UIDs returns the identifiers of units, in order.
func UIDs[U Unit](units []U) []Identifier {
	out := make([]Identifier, len(units))
	for i, u := range units {
		out[i] = u.UID()
	}
	return out
}
