package unit

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dmdqy/doranet/internal/chem"
)

// Molecule is a data unit representing one chemical structure.
type Molecule interface {
	Unit

	// Smiles returns the canonical SMILES. It is also the UID.
	Smiles() string

	// InchiKey returns the InChIKey.
	InchiKey() (string, error)

	// Structure returns the engine structure. Callers must not mutate it.
	Structure() (chem.Mol, error)
}

// MolOption configures molecule construction.
type MolOption func(*molConfig)

type molConfig struct {
	sanitize   bool
	neutralize bool
}

func newMolConfig(opts []MolOption) molConfig {
	cfg := molConfig{sanitize: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c molConfig) options() chem.MolOptions {
	return chem.MolOptions{Sanitize: c.sanitize, Neutralize: c.neutralize}
}

// WithSanitize controls structure sanitization. Default: true.
func WithSanitize(sanitize bool) MolOption {
	return func(c *molConfig) {
		c.sanitize = sanitize
	}
}

// WithNeutralize controls charge neutralization. Default: false.
func WithNeutralize(neutralize bool) MolOption {
	return func(c *molConfig) {
		c.neutralize = neutralize
	}
}

// buildStructure resolves a molecule source. Blobs are the engine's own
// prior output and are decoded without re-preparing.
func buildStructure(codec chem.MolCodec, src any, cfg molConfig) (chem.Mol, error) {
	var (
		mol chem.Mol
		err error
	)
	switch v := src.(type) {
	case string:
		mol, err = codec.MolFromSmiles(v, cfg.options())
	case []byte:
		mol, err = codec.MolFromBinary(v)
	case chem.Mol:
		mol, err = codec.PrepareMol(v, cfg.options())
	default:
		return nil, &ConstructionError{
			Kind:   KindMolecule,
			Reason: fmt.Sprintf("unsupported source type %T (want SMILES string, blob or structure)", src),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("molecule: %w", err)
	}
	return mol, nil
}

// MinimalMolecule stores only the blob and SMILES. The structure and
// InChIKey are recomputed from the blob on every call.
type MinimalMolecule struct {
	codec  chem.MolCodec
	blob   []byte
	smiles string
}

var _ Molecule = (*MinimalMolecule)(nil)

// NewMinimalMolecule builds a minimal-cache molecule from a SMILES string,
// a blob ([]byte) or an engine structure.
func NewMinimalMolecule(codec chem.MolCodec, src any, opts ...MolOption) (*MinimalMolecule, error) {
	mol, err := buildStructure(codec, src, newMolConfig(opts))
	if err != nil {
		return nil, err
	}
	return minimalFromStructure(codec, mol)
}

func minimalFromStructure(codec chem.MolCodec, mol chem.Mol) (*MinimalMolecule, error) {
	smiles, err := codec.MolToSmiles(mol)
	if err != nil {
		return nil, fmt.Errorf("molecule: %w", err)
	}
	blob, err := codec.MolToBinary(mol)
	if err != nil {
		return nil, fmt.Errorf("molecule %s: %w", smiles, err)
	}
	return &MinimalMolecule{codec: codec, blob: blob, smiles: smiles}, nil
}

// Kind implements Unit.
func (m *MinimalMolecule) Kind() Kind { return KindMolecule }

// UID implements Unit.
func (m *MinimalMolecule) UID() Identifier { return Identifier(m.smiles) }

// Blob implements Unit.
func (m *MinimalMolecule) Blob() ([]byte, error) {
	return bytes.Clone(m.blob), nil
}

// Smiles implements Molecule.
func (m *MinimalMolecule) Smiles() string { return m.smiles }

// Structure implements Molecule. Each call decodes a fresh structure.
func (m *MinimalMolecule) Structure() (chem.Mol, error) {
	mol, err := m.codec.MolFromBinary(m.blob)
	if err != nil {
		return nil, fmt.Errorf("molecule %s: %w", m.smiles, err)
	}
	return mol, nil
}

// InchiKey implements Molecule.
func (m *MinimalMolecule) InchiKey() (string, error) {
	mol, err := m.Structure()
	if err != nil {
		return "", err
	}
	key, err := m.codec.MolToInchiKey(mol)
	if err != nil {
		return "", fmt.Errorf("molecule %s: %w", m.smiles, err)
	}
	return key, nil
}

// String returns the SMILES.
func (m *MinimalMolecule) String() string { return m.smiles }

// CachedMolecule stores the structure and memoizes the blob and InChIKey.
type CachedMolecule struct {
	codec  chem.MolCodec
	mol    chem.Mol
	smiles string

	blob     func() ([]byte, error)
	inchiKey func() (string, error)
}

var _ Molecule = (*CachedMolecule)(nil)

// NewCachedMolecule builds a full-cache molecule from a SMILES string,
// a blob ([]byte) or an engine structure.
func NewCachedMolecule(codec chem.MolCodec, src any, opts ...MolOption) (*CachedMolecule, error) {
	mol, err := buildStructure(codec, src, newMolConfig(opts))
	if err != nil {
		return nil, err
	}
	return cachedFromStructure(codec, mol)
}

func cachedFromStructure(codec chem.MolCodec, mol chem.Mol) (*CachedMolecule, error) {
	smiles, err := codec.MolToSmiles(mol)
	if err != nil {
		return nil, fmt.Errorf("molecule: %w", err)
	}
	m := &CachedMolecule{codec: codec, mol: mol, smiles: smiles}
	m.blob = sync.OnceValues(func() ([]byte, error) {
		return codec.MolToBinary(mol)
	})
	m.inchiKey = sync.OnceValues(func() (string, error) {
		return codec.MolToInchiKey(mol)
	})
	return m, nil
}

// Kind implements Unit.
func (m *CachedMolecule) Kind() Kind { return KindMolecule }

// UID implements Unit.
func (m *CachedMolecule) UID() Identifier { return Identifier(m.smiles) }

// Blob implements Unit. The encoding is computed once.
func (m *CachedMolecule) Blob() ([]byte, error) {
	blob, err := m.blob()
	if err != nil {
		return nil, fmt.Errorf("molecule %s: %w", m.smiles, err)
	}
	return bytes.Clone(blob), nil
}

// Smiles implements Molecule.
func (m *CachedMolecule) Smiles() string { return m.smiles }

// Structure implements Molecule.
func (m *CachedMolecule) Structure() (chem.Mol, error) { return m.mol, nil }

// InchiKey implements Molecule. The key is computed once.
func (m *CachedMolecule) InchiKey() (string, error) {
	key, err := m.inchiKey()
	if err != nil {
		return "", fmt.Errorf("molecule %s: %w", m.smiles, err)
	}
	return key, nil
}

// String returns the SMILES.
func (m *CachedMolecule) String() string { return m.smiles }

// MoleculeFactory wraps an engine structure into a molecule unit.
// Operators use it to wrap their products.
type MoleculeFactory func(mol chem.Mol) (Molecule, error)

// MinimalFactory returns a factory producing MinimalMolecule units.
func MinimalFactory(codec chem.MolCodec, opts ...MolOption) MoleculeFactory {
	return func(mol chem.Mol) (Molecule, error) {
		return NewMinimalMolecule(codec, mol, opts...)
	}
}

// CachedFactory returns a factory producing CachedMolecule units.
func CachedFactory(codec chem.MolCodec, opts ...MolOption) MoleculeFactory {
	return func(mol chem.Mol) (Molecule, error) {
		return NewCachedMolecule(codec, mol, opts...)
	}
}
