package meta

import (
	"maps"

	"github.com/dmdqy/doranet/internal/unit"
)

// Map is the metadata attached to one entity.
type Map map[Key]any

// Clone returns a shallow copy. A nil map clones to nil.
func (m Map) Clone() Map {
	return maps.Clone(m)
}

// Lookup returns the value stored under k if it has type T.
// A missing key and a value of another type both report false.
func Lookup[T any](m Map, k Key) (T, bool) {
	v, ok := m[k]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// DataPacket pairs a unit with a snapshot of its metadata.
// Calculators read packets; they never mutate units or stored metadata.
type DataPacket[T unit.Unit] struct {
	// Index is the unit's position in the driver's collection.
	Index int

	// Item is the unit.
	Item T

	// Meta is a snapshot of the unit's metadata, possibly nil.
	Meta Map
}

// ReactionExplicit is a reaction with its operator and participants
// resolved to packets. Reactants keep the order in which the operator
// consumed them; products keep the order the engine produced them.
type ReactionExplicit struct {
	Operator  DataPacket[*unit.Operator]
	Reactants []DataPacket[unit.Molecule]
	Products  []DataPacket[unit.Molecule]
	Reaction  *unit.Reaction
}

// HasReactant reports whether id is consumed by the reaction.
func (r ReactionExplicit) HasReactant(id unit.Identifier) bool {
	for _, p := range r.Reactants {
		if p.Item.UID() == id {
			return true
		}
	}
	return false
}

// HasProduct reports whether id is produced by the reaction.
func (r ReactionExplicit) HasProduct(id unit.Identifier) bool {
	for _, p := range r.Products {
		if p.Item.UID() == id {
			return true
		}
	}
	return false
}
