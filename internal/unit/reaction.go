package unit

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/dmdqy/doranet/internal/ir"
)

// Reaction is an immutable data unit recording one application of an
// operator to a reactant set yielding a product set.
//
// Reaction blob layout (canonical ir value):
//
//	Tuple{Str(operator), Set(products...), Set(reactants...)}
//
// The UID is the canonical encoding of
//
//	Tuple{Str(operator), Tuple(sorted products...), Tuple(sorted reactants...)}
//
// so permuting reactants or products yields the same reaction.
type Reaction struct {
	operator  Identifier
	reactants []Identifier
	products  []Identifier
	uid       Identifier

	blob func() ([]byte, error)
}

var _ Unit = (*Reaction)(nil)

// ReactionArgs supplies exactly one reaction form: either Operator,
// Reactants and Products, or Blob. A nil slice or empty operator counts
// as not supplied; an empty non-nil slice is a supplied empty set.
type ReactionArgs struct {
	Operator  Identifier
	Reactants []Identifier
	Products  []Identifier
	Blob      []byte
}

func (a ReactionArgs) anyExplicit() bool {
	return a.Operator != "" || a.Reactants != nil || a.Products != nil
}

func (a ReactionArgs) completeExplicit() bool {
	return a.Operator != "" && a.Reactants != nil && a.Products != nil
}

// NewReaction builds a reaction from explicit identifiers or from a blob.
// Supplying neither form, an incomplete explicit form, or both forms
// fails with ErrInsufficientArguments. Blobs are decoded through ir.Decode.
func NewReaction(args ReactionArgs) (*Reaction, error) {
	switch {
	case args.Blob != nil && !args.anyExplicit():
		return decodeReactionBlob(args.Blob)
	case args.Blob == nil && args.completeExplicit():
		return newReaction(args.Operator, args.Reactants, args.Products), nil
	default:
		return nil, &ConstructionError{
			Kind:   KindReaction,
			Reason: "expected operator, reactants and products, or a blob",
			Err:    ErrInsufficientArguments,
		}
	}
}

func newReaction(op Identifier, reactants, products []Identifier) *Reaction {
	r := &Reaction{
		operator:  op,
		reactants: SortIdentifiers(nfcIdentifiers(reactants)),
		products:  SortIdentifiers(nfcIdentifiers(products)),
	}
	r.uid = Identifier(ir.MustMarshalCanonical(ir.Tuple{
		ir.Str(r.operator),
		identifierTuple(r.products),
		identifierTuple(r.reactants),
	}))
	r.blob = sync.OnceValues(func() ([]byte, error) {
		return ir.MarshalCanonical(ir.Tuple{
			ir.Str(r.operator),
			ir.NewSet(identifierTuple(r.products)...),
			ir.NewSet(identifierTuple(r.reactants)...),
		})
	})
	return r
}

// nfcIdentifiers returns ids in NFC, the form the encoder writes, so the
// sorted order survives a blob round trip.
func nfcIdentifiers(ids []Identifier) []Identifier {
	out := make([]Identifier, len(ids))
	for i, id := range ids {
		out[i] = Identifier(norm.NFC.String(string(id)))
	}
	return out
}

func identifierTuple(ids []Identifier) ir.Tuple {
	t := make(ir.Tuple, len(ids))
	for i, id := range ids {
		t[i] = ir.Str(id)
	}
	return t
}

func identifiersOf(v ir.Value, field string) ([]Identifier, error) {
	set, ok := v.(ir.Set)
	if !ok {
		return nil, &ConstructionError{Kind: KindReaction, Reason: fmt.Sprintf("blob %s must be a set, got %s", field, v.Tag())}
	}
	ss, ok := ir.AsStrings(set)
	if !ok {
		return nil, &ConstructionError{Kind: KindReaction, Reason: fmt.Sprintf("blob %s must contain only strings", field)}
	}
	ids := make([]Identifier, len(ss))
	for i, s := range ss {
		ids[i] = Identifier(s)
	}
	return ids, nil
}

func decodeReactionBlob(blob []byte) (*Reaction, error) {
	v, err := ir.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("reaction blob: %w", err)
	}

	t, ok := v.(ir.Tuple)
	if !ok || len(t) != 3 {
		return nil, &ConstructionError{Kind: KindReaction, Reason: "blob must be an (operator, products, reactants) triple"}
	}
	op, ok := t[0].(ir.Str)
	if !ok || op == "" {
		return nil, &ConstructionError{Kind: KindReaction, Reason: "blob operator must be a non-empty string"}
	}
	products, err := identifiersOf(t[1], "products")
	if err != nil {
		return nil, err
	}
	reactants, err := identifiersOf(t[2], "reactants")
	if err != nil {
		return nil, err
	}
	return newReaction(Identifier(op), reactants, products), nil
}

// Kind implements Unit.
func (r *Reaction) Kind() Kind { return KindReaction }

// UID implements Unit.
func (r *Reaction) UID() Identifier { return r.uid }

// Blob implements Unit. The encoding is computed once.
func (r *Reaction) Blob() ([]byte, error) {
	blob, err := r.blob()
	if err != nil {
		return nil, fmt.Errorf("reaction: %w", err)
	}
	return slices.Clone(blob), nil
}

// Operator returns the operator UID.
func (r *Reaction) Operator() Identifier { return r.operator }

// Reactants returns the reactant UIDs, sorted.
func (r *Reaction) Reactants() []Identifier { return slices.Clone(r.reactants) }

// Products returns the product UIDs, sorted.
func (r *Reaction) Products() []Identifier { return slices.Clone(r.products) }

// HasReactant reports whether id is one of the reactants.
func (r *Reaction) HasReactant(id Identifier) bool {
	_, found := slices.BinarySearch(r.reactants, id)
	return found
}

// HasProduct reports whether id is one of the products.
func (r *Reaction) HasProduct(id Identifier) bool {
	_, found := slices.BinarySearch(r.products, id)
	return found
}

// Digest returns a fixed-length content digest of the UID, suitable as
// a storage key.
func (r *Reaction) Digest() string {
	return ir.DigestString(ir.DomainReaction, string(r.uid))
}

// String returns a readable summary.
func (r *Reaction) String() string {
	return fmt.Sprintf("Reaction(operator=%s, reactants=%v, products=%v)", r.operator, r.reactants, r.products)
}
