package chem

// Mol is an engine-native molecular structure.
type Mol interface {
	// NumAtoms returns the number of heavy atoms.
	NumAtoms() int
}

// Rxn is an engine-native reaction template.
type Rxn interface {
	// NumReactantTemplates returns the number of reactant slots.
	NumReactantTemplates() int

	// NumAgentTemplates returns the number of agent slots.
	NumAgentTemplates() int
}

// MolOptions controls structure construction.
type MolOptions struct {
	// Sanitize runs the engine's valence and aromaticity checks.
	Sanitize bool

	// Neutralize removes formal charges where chemically possible.
	Neutralize bool
}

// MolCodec converts structures to and from their canonical encodings.
type MolCodec interface {
	// MolFromSmiles parses a SMILES string.
	MolFromSmiles(smiles string, opts MolOptions) (Mol, error)

	// MolFromBinary decodes the engine's own binary encoding.
	MolFromBinary(data []byte) (Mol, error)

	// PrepareMol applies opts to an existing structure and returns the
	// result. The input is not modified.
	PrepareMol(m Mol, opts MolOptions) (Mol, error)

	// MolToBinary encodes a structure. Decoding the result with
	// MolFromBinary yields a structure with the same canonical SMILES.
	MolToBinary(m Mol) ([]byte, error)

	// MolToSmiles returns the canonical SMILES.
	MolToSmiles(m Mol) (string, error)

	// MolToInchiKey returns the InChIKey.
	MolToInchiKey(m Mol) (string, error)
}

// Matcher tests substructure containment.
type Matcher interface {
	// HasSubstructMatch reports whether query is a substructure of m.
	HasSubstructMatch(m, query Mol, useChirality bool) bool
}

// Normalizer produces normalized copies of structures.
type Normalizer interface {
	// CopyMol returns an independent copy of m.
	CopyMol(m Mol) Mol

	// Kekulize converts aromatic bonds of m to alternating single and
	// double bonds in place. Fails with a StructureError of kind
	// KindKekulize when no Kekulé form exists.
	Kekulize(m Mol) error
}

// Reactor parses reaction templates and applies them.
type Reactor interface {
	// RxnFromSmarts parses a reaction SMARTS.
	RxnFromSmarts(smarts string) (Rxn, error)

	// RxnToSmarts returns the canonical reaction SMARTS.
	RxnToSmarts(r Rxn) (string, error)

	// RxnToBinary encodes a template.
	RxnToBinary(r Rxn) ([]byte, error)

	// RxnFromBinary decodes a template produced by RxnToBinary.
	RxnFromBinary(data []byte) (Rxn, error)

	// ReactantTemplates returns one query structure per reactant slot,
	// in slot order.
	ReactantTemplates(r Rxn) ([]Mol, error)

	// RunReactants applies r to reactants and returns every product tuple.
	// maxProducts of 0 means no limit.
	RunReactants(r Rxn, reactants []Mol, maxProducts int) ([][]Mol, error)
}

// Engine is the full capability set doranet needs.
type Engine interface {
	MolCodec
	Matcher
	Normalizer
	Reactor
}
