package netspec

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmdqy/doranet/internal/chem"
	"github.com/dmdqy/doranet/internal/engine"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// Built is the result of registering a network.
type Built struct {
	// Seeds are the canonical seed molecules in declaration order.
	Seeds []unit.Molecule

	// Operators maps operator names to the registered operators.
	Operators map[string]*unit.Operator

	// Names lists operator names in declaration order.
	Names []string
}

// Calculators returns the calculators the network needs: the generation
// calculator writing n.GenerationKey.
func (n *Network) Calculators() []meta.Calculator {
	return []meta.Calculator{
		meta.Erase[int](meta.GenerationCalculator{GenKey: n.GenerationKey}),
	}
}

// Build constructs the network's units with eng and registers them with
// p. Each seed gets generation 0 and its declared metadata.
func (n *Network) Build(ctx context.Context, eng chem.Engine, p *engine.Propagator) (*Built, error) {
	out := &Built{Operators: make(map[string]*unit.Operator, len(n.Operators))}

	for _, s := range n.Seeds {
		cm, err := unit.NewCachedMolecule(eng, s.Smiles)
		if err != nil {
			return nil, fmt.Errorf("netspec: seed %q: %w", s.Smiles, err)
		}
		m, err := p.AddMolecule(ctx, cm)
		if err != nil {
			return nil, fmt.Errorf("netspec: seed %q: %w", s.Smiles, err)
		}
		if err := p.Seed(ctx, m.UID(), n.GenerationKey, 0); err != nil {
			return nil, fmt.Errorf("netspec: seed %q: %w", s.Smiles, err)
		}

		keys := make([]string, 0, len(s.Meta))
		for k := range s.Meta {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := p.Seed(ctx, m.UID(), meta.Key(k), s.Meta[k]); err != nil {
				return nil, fmt.Errorf("netspec: seed %q: %w", s.Smiles, err)
			}
		}
		out.Seeds = append(out.Seeds, m)
	}

	for _, def := range n.Operators {
		op, err := unit.NewOperator(eng, def.Smarts, unit.WithKekulize(def.Kekulize))
		if err != nil {
			return nil, fmt.Errorf("netspec: operator %s: %w", def.Name, err)
		}
		op, err = p.AddOperator(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("netspec: operator %s: %w", def.Name, err)
		}
		out.Operators[def.Name] = op
		out.Names = append(out.Names, def.Name)
	}
	return out, nil
}
