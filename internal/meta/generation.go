package meta

import (
	"github.com/dmdqy/doranet/internal/unit"
)

// GenerationCalculator computes the generation of a molecule: the minimum
// number of reaction steps separating it from the seed set. Seeds are
// given generation 0 by the driver.
//
// Each proposal is one relaxation step over the reaction hypergraph,
// and min is the join of the lattice of natural numbers (unknown is top).
type GenerationCalculator struct {
	GenKey Key
}

var _ PropertyCalc[int] = GenerationCalculator{}

// Key implements PropertyCalc.
func (c GenerationCalculator) Key() Key { return c.GenKey }

// Requires implements PropertyCalc. Generation reads itself on reactants.
func (c GenerationCalculator) Requires() KeyPacket { return NewKeyPacket(c.GenKey) }

// Resolver implements PropertyCalc.
func (c GenerationCalculator) Resolver() ResolverFunc[int] {
	return func(a, b int) int { return min(a, b) }
}

// Propose implements PropertyCalc.
//
//  1. A molecule consumed by rxn gets no update from it.
//  2. If any reactant has no generation yet, rxn is not yet informative.
//  3. The candidate is 1 + the largest reactant generation; a reaction
//     without reactants proposes nothing.
//  4. If the accepted value (the smaller of prev and the stored value)
//     is at most the candidate, there is no update. Values never move up.
func (c GenerationCalculator) Propose(data DataPacket[unit.Molecule], rxn ReactionExplicit, prev *int) (int, bool) {
	if rxn.HasReactant(data.Item.UID()) {
		return 0, false
	}
	if len(rxn.Reactants) == 0 {
		return 0, false
	}

	candidate := 0
	for _, r := range rxn.Reactants {
		gen, ok := Lookup[int](r.Meta, c.GenKey)
		if !ok {
			return 0, false
		}
		candidate = max(candidate, gen+1)
	}

	accepted, known := 0, false
	if prev != nil {
		accepted, known = *prev, true
	}
	if stored, ok := Lookup[int](data.Meta, c.GenKey); ok {
		if !known || stored < accepted {
			accepted = stored
		}
		known = true
	}
	if known && accepted <= candidate {
		return 0, false
	}
	return candidate, true
}
