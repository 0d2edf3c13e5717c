package unit

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/dmdqy/doranet/internal/chem"
	"github.com/dmdqy/doranet/internal/ir"
)

// Operator is a data unit representing one reaction template with
// reactant and agent slots.
//
// Operator blob layout (canonical ir value):
//
//	Tuple{Bytes(engine template binary), Bool(kekulize)}
type Operator struct {
	eng      chem.Engine
	rxn      chem.Rxn
	smarts   string
	kekulize bool
	factory  MoleculeFactory

	blob      func() ([]byte, error)
	templates func() ([]chem.Mol, error)
}

var _ Unit = (*Operator)(nil)

// OperatorOption configures operator construction.
type OperatorOption func(*operatorConfig)

type operatorConfig struct {
	kekulize    bool
	kekulizeSet bool
	factory     MoleculeFactory
}

// WithKekulize makes Compat and Apply kekulize copies of reactant
// structures before matching. When constructing from a blob the option
// overrides the stored flag.
func WithKekulize(kekulize bool) OperatorOption {
	return func(c *operatorConfig) {
		c.kekulize = kekulize
		c.kekulizeSet = true
	}
}

// WithFactory sets the factory used to wrap products.
// Default: CachedFactory over the operator's engine.
func WithFactory(f MoleculeFactory) OperatorOption {
	return func(c *operatorConfig) {
		c.factory = f
	}
}

// NewOperator builds an operator from a reaction SMARTS string, a blob
// ([]byte) or an engine template.
//
// Blobs are decoded through ir.Decode; a blob referencing a type outside
// the allow-list fails with ir.ErrForbiddenType.
func NewOperator(eng chem.Engine, src any, opts ...OperatorOption) (*Operator, error) {
	var cfg operatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		rxn      chem.Rxn
		kekulize = cfg.kekulize
		err      error
	)
	switch v := src.(type) {
	case string:
		rxn, err = eng.RxnFromSmarts(v)
		if err != nil {
			return nil, fmt.Errorf("operator: %w", err)
		}
	case []byte:
		var stored bool
		rxn, stored, err = decodeOperatorBlob(eng, v)
		if err != nil {
			return nil, err
		}
		if !cfg.kekulizeSet {
			kekulize = stored
		}
	case chem.Rxn:
		rxn = v
	default:
		return nil, &ConstructionError{
			Kind:   KindOperator,
			Reason: fmt.Sprintf("unsupported source type %T (want SMARTS string, blob or template)", src),
		}
	}

	smarts, err := eng.RxnToSmarts(rxn)
	if err != nil {
		return nil, fmt.Errorf("operator: %w", err)
	}

	op := &Operator{
		eng:      eng,
		rxn:      rxn,
		smarts:   smarts,
		kekulize: kekulize,
		factory:  cfg.factory,
	}
	if op.factory == nil {
		op.factory = CachedFactory(eng)
	}
	op.blob = sync.OnceValues(func() ([]byte, error) {
		bin, err := eng.RxnToBinary(rxn)
		if err != nil {
			return nil, err
		}
		return ir.MarshalCanonical(ir.Tuple{ir.Bytes(bin), ir.Bool(kekulize)})
	})
	op.templates = sync.OnceValues(func() ([]chem.Mol, error) {
		return eng.ReactantTemplates(rxn)
	})
	return op, nil
}

func decodeOperatorBlob(eng chem.Engine, blob []byte) (chem.Rxn, bool, error) {
	v, err := ir.Decode(blob)
	if err != nil {
		return nil, false, fmt.Errorf("operator blob: %w", err)
	}

	t, ok := v.(ir.Tuple)
	if !ok || len(t) != 2 {
		return nil, false, &ConstructionError{Kind: KindOperator, Reason: "blob must be a (template, kekulize) pair"}
	}
	bin, ok := t[0].(ir.Bytes)
	if !ok {
		return nil, false, &ConstructionError{Kind: KindOperator, Reason: fmt.Sprintf("blob template must be bytes, got %s", t[0].Tag())}
	}
	kekulize, ok := t[1].(ir.Bool)
	if !ok {
		return nil, false, &ConstructionError{Kind: KindOperator, Reason: fmt.Sprintf("blob kekulize flag must be bool, got %s", t[1].Tag())}
	}

	rxn, err := eng.RxnFromBinary(bin)
	if err != nil {
		return nil, false, fmt.Errorf("operator blob: %w", err)
	}
	return rxn, bool(kekulize), nil
}

// Kind implements Unit.
func (o *Operator) Kind() Kind { return KindOperator }

// UID implements Unit. It is the canonical SMARTS and ignores the
// kekulize flag.
func (o *Operator) UID() Identifier { return Identifier(o.smarts) }

// Blob implements Unit. The encoding is computed once.
func (o *Operator) Blob() ([]byte, error) {
	blob, err := o.blob()
	if err != nil {
		return nil, fmt.Errorf("operator %s: %w", o.smarts, err)
	}
	return slices.Clone(blob), nil
}

// Smarts returns the canonical reaction SMARTS.
func (o *Operator) Smarts() string { return o.smarts }

// Template returns the engine template. Callers must not mutate it.
func (o *Operator) Template() chem.Rxn { return o.rxn }

// Kekulize reports whether reactants are kekulized before matching.
func (o *Operator) Kekulize() bool { return o.kekulize }

// Len returns the number of reactant slots plus agent slots.
func (o *Operator) Len() int {
	return o.rxn.NumReactantTemplates() + o.rxn.NumAgentTemplates()
}

// String returns the SMARTS, flagged when kekulizing.
func (o *Operator) String() string {
	if o.kekulize {
		return o.smarts + " [kekulize]"
	}
	return o.smarts
}

// SortOperators sorts operators by UID.
func SortOperators(ops []*Operator) {
	slices.SortFunc(ops, func(a, b *Operator) int {
		return cmp.Compare(a.UID(), b.UID())
	})
}
