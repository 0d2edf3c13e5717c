package unit

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Match records that a molecule fits one reactant slot of an operator.
type Match struct {
	Operator Identifier
	Slot     int
	Molecule Identifier
}

// Screen evaluates Compat for every (operator, slot, molecule) triple
// using at most workers goroutines, and returns the matches ordered by
// operator, slot and molecule.
//
// A molecule that cannot be kekulized for a kekulizing operator fits none
// of its slots. Any other error stops the screen.
func Screen(ctx context.Context, ops []*Operator, mols []Molecule, workers int) ([]Match, error) {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu      sync.Mutex
		matches []Match
	)

loop:
	for _, op := range ops {
		for _, mol := range mols {
			if gctx.Err() != nil {
				break loop
			}
			g.Go(func() error {
				found, err := screenOne(op, mol)
				if err != nil {
					return err
				}
				mu.Lock()
				matches = append(matches, found...)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b Match) int {
		return cmp.Or(
			cmp.Compare(a.Operator, b.Operator),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.Molecule, b.Molecule),
		)
	})
	return matches, nil
}

func screenOne(op *Operator, mol Molecule) ([]Match, error) {
	slots := op.Template().NumReactantTemplates()

	var found []Match
	for slot := 0; slot < slots; slot++ {
		ok, err := op.Compat(mol, slot)
		var ae *ApplicationError
		if errors.As(err, &ae) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, Match{Operator: op.UID(), Slot: slot, Molecule: mol.UID()})
		}
	}
	return found, nil
}
