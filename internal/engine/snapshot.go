package engine

import (
	"cmp"
	"slices"

	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// ObservedReaction is a reaction together with the participant order it
// was first observed with.
type ObservedReaction struct {
	Reaction  *unit.Reaction
	Reactants []unit.Identifier
	Products  []unit.Identifier
	Seq       int64
}

// Snapshot is a consistent copy of the propagator's state. Units and
// reactions are in UID order.
type Snapshot struct {
	Molecules []unit.Molecule
	Operators []*unit.Operator
	Reactions []ObservedReaction
	Metadata  map[unit.Identifier]meta.Map

	// Pending is the number of reactions still queued.
	Pending int

	// Seq is the clock position.
	Seq int64
}

// Snapshot returns a copy of the current state.
func (p *Propagator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Molecules: make([]unit.Molecule, 0, len(p.molecules)),
		Operators: make([]*unit.Operator, 0, len(p.operators)),
		Reactions: make([]ObservedReaction, 0, len(p.reactions)),
		Metadata:  make(map[unit.Identifier]meta.Map, len(p.metadata)),
		Pending:   p.queue.Len(),
		Seq:       p.clock.Current(),
	}
	for _, e := range p.molecules {
		s.Molecules = append(s.Molecules, e.mol)
	}
	for _, e := range p.operators {
		s.Operators = append(s.Operators, e.op)
	}
	for _, e := range p.reactions {
		s.Reactions = append(s.Reactions, ObservedReaction{
			Reaction:  e.rxn,
			Reactants: slices.Clone(e.reactants),
			Products:  slices.Clone(e.products),
			Seq:       e.seq,
		})
	}
	for id, m := range p.metadata {
		s.Metadata[id] = m.Clone()
	}

	slices.SortFunc(s.Molecules, func(a, b unit.Molecule) int { return cmp.Compare(a.UID(), b.UID()) })
	unit.SortOperators(s.Operators)
	slices.SortFunc(s.Reactions, func(a, b ObservedReaction) int {
		return cmp.Compare(a.Reaction.UID(), b.Reaction.UID())
	})
	return s
}
