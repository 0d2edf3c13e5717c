package unit

import (
	"fmt"

	"github.com/dmdqy/doranet/internal/chem"
)

// Compat reports whether mol contains the reactant template of the given
// slot as a substructure, with chirality.
//
// Compat is a cheap pre-filter for Apply. The per-slot templates are
// built once per operator. When the operator kekulizes, a copy of the
// structure is kekulized first; failure to kekulize returns an
// *ApplicationError.
func (o *Operator) Compat(mol Molecule, slot int) (bool, error) {
	templates, err := o.templates()
	if err != nil {
		return false, fmt.Errorf("operator %s: templates: %w", o.smarts, err)
	}
	if slot < 0 || slot >= len(templates) {
		return false, fmt.Errorf("operator %s: slot %d out of range [0, %d)", o.smarts, slot, len(templates))
	}

	structure, err := mol.Structure()
	if err != nil {
		return false, err
	}
	if o.kekulize {
		structure = o.eng.CopyMol(structure)
		if err := o.eng.Kekulize(structure); err != nil {
			return false, &ApplicationError{Operator: o.UID(), Reactants: []Identifier{mol.UID()}, Err: err}
		}
	}
	return o.eng.HasSubstructMatch(structure, templates[slot], true), nil
}

// Apply runs the operator on reactants, in slot order, and returns every
// product tuple the engine produced, each product wrapped by the
// operator's molecule factory.
//
// Every failure, including an engine panic, is returned as a single
// *ApplicationError naming the operator and the reactants.
func (o *Operator) Apply(reactants []Molecule) (products [][]Molecule, err error) {
	fail := func(cause error) error {
		return &ApplicationError{Operator: o.UID(), Reactants: UIDs(reactants), Err: cause}
	}
	defer func() {
		if r := recover(); r != nil {
			products = nil
			err = fail(fmt.Errorf("chemistry engine panic: %v", r))
		}
	}()

	mols := make([]chem.Mol, len(reactants))
	for i, reactant := range reactants {
		structure, err := reactant.Structure()
		if err != nil {
			return nil, fail(err)
		}
		if o.kekulize {
			structure = o.eng.CopyMol(structure)
			if err := o.eng.Kekulize(structure); err != nil {
				return nil, fail(err)
			}
		}
		mols[i] = structure
	}

	raw, err := o.eng.RunReactants(o.rxn, mols, 0)
	if err != nil {
		return nil, fail(err)
	}

	products = make([][]Molecule, len(raw))
	for i, tuple := range raw {
		products[i] = make([]Molecule, len(tuple))
		for j, mol := range tuple {
			wrapped, err := o.factory(mol)
			if err != nil {
				return nil, fail(err)
			}
			products[i][j] = wrapped
		}
	}
	return products, nil
}
