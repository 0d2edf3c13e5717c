package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dmdqy/doranet/internal/chem"
)

// ToyEngine is a deterministic chemistry engine for tests.
//
// It implements chem.Engine over a string model of chemistry:
//
//   - A SMILES is a non-empty string of ASCII letters, optionally with
//     '+'/'-' charges and '@' chirality marks.
//   - Lowercase letters are aromatic. Kekulize uppercases them; a
//     structure containing 'x' has no Kekulé form.
//   - Substructure matching is substring containment. Without
//     chirality, '@' marks are ignored on both sides.
//   - Sanitization rejects "XX" (an impossible valence).
//   - Neutralization strips charges.
//   - A reaction SMARTS has the form "P1.P2>A>Q1.Q2". For every
//     combination of match positions the first product is the first
//     reactant with P1 replaced by Q1, followed by the other reactants
//     with their matched pattern removed; further products are emitted
//     literally.
//   - Binary encodings are "TOY1"/"TOYR" followed by the string form.
//
// Thread-safety: ToyEngine is safe for concurrent use. Structures it
// returns are only mutated by Kekulize, which callers apply to copies.
type ToyEngine struct {
	// PanicOn makes RunReactants panic when any reactant contains it.
	PanicOn string

	templateCalls atomic.Int64
	encodeCalls   atomic.Int64
}

var _ chem.Engine = (*ToyEngine)(nil)

// NewToyEngine creates a toy engine.
func NewToyEngine() *ToyEngine {
	return &ToyEngine{}
}

// ToyMol is the toy engine's structure.
type ToyMol struct {
	smiles string
}

// NumAtoms implements chem.Mol.
func (m *ToyMol) NumAtoms() int {
	n := 0
	for _, r := range m.smiles {
		if isLetter(r) {
			n++
		}
	}
	return n
}

// String returns the toy SMILES.
func (m *ToyMol) String() string {
	return m.smiles
}

// ToyRxn is the toy engine's reaction template.
type ToyRxn struct {
	reactants []string
	agents    []string
	products  []string
}

// NumReactantTemplates implements chem.Rxn.
func (r *ToyRxn) NumReactantTemplates() int { return len(r.reactants) }

// NumAgentTemplates implements chem.Rxn.
func (r *ToyRxn) NumAgentTemplates() int { return len(r.agents) }

// Mol builds a toy structure without validation.
func Mol(smiles string) chem.Mol {
	return &ToyMol{smiles: smiles}
}

// TemplateCalls returns how many times ReactantTemplates ran.
func (e *ToyEngine) TemplateCalls() int64 {
	return e.templateCalls.Load()
}

// EncodeCalls returns how many times MolToBinary ran.
func (e *ToyEngine) EncodeCalls() int64 {
	return e.encodeCalls.Load()
}

var (
	molMagic = []byte("TOY1")
	rxnMagic = []byte("TOYR")
)

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func parseSmiles(s string) error {
	if s == "" {
		return &chem.StructureError{Kind: chem.KindParse, Message: "empty SMILES"}
	}
	for _, r := range s {
		if !isLetter(r) && r != '+' && r != '-' && r != '@' {
			return &chem.StructureError{Kind: chem.KindParse, Input: s, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return nil
}

func toyMol(m chem.Mol) (*ToyMol, error) {
	tm, ok := m.(*ToyMol)
	if !ok || tm == nil {
		return nil, &chem.StructureError{Kind: chem.KindParse, Message: fmt.Sprintf("not a toy structure: %T", m)}
	}
	return tm, nil
}

func toyRxn(r chem.Rxn) (*ToyRxn, error) {
	tr, ok := r.(*ToyRxn)
	if !ok || tr == nil {
		return nil, &chem.StructureError{Kind: chem.KindParse, Message: fmt.Sprintf("not a toy template: %T", r)}
	}
	return tr, nil
}

func prepare(s string, opts chem.MolOptions) (string, error) {
	if opts.Neutralize {
		s = strings.NewReplacer("+", "", "-", "").Replace(s)
	}
	if opts.Sanitize && strings.Contains(s, "XX") {
		return "", &chem.StructureError{Kind: chem.KindSanitize, Input: s, Message: "sanitization failed"}
	}
	if err := parseSmiles(s); err != nil {
		return "", err
	}
	return s, nil
}

// MolFromSmiles implements chem.MolCodec.
func (e *ToyEngine) MolFromSmiles(smiles string, opts chem.MolOptions) (chem.Mol, error) {
	if err := parseSmiles(smiles); err != nil {
		return nil, err
	}
	s, err := prepare(smiles, opts)
	if err != nil {
		return nil, err
	}
	return &ToyMol{smiles: s}, nil
}

// MolFromBinary implements chem.MolCodec.
func (e *ToyEngine) MolFromBinary(data []byte) (chem.Mol, error) {
	if !bytes.HasPrefix(data, molMagic) {
		return nil, &chem.StructureError{Kind: chem.KindParse, Message: "bad molecule binary header"}
	}
	s := string(data[len(molMagic):])
	if err := parseSmiles(s); err != nil {
		return nil, err
	}
	return &ToyMol{smiles: s}, nil
}

// PrepareMol implements chem.MolCodec.
func (e *ToyEngine) PrepareMol(m chem.Mol, opts chem.MolOptions) (chem.Mol, error) {
	tm, err := toyMol(m)
	if err != nil {
		return nil, err
	}
	s, err := prepare(tm.smiles, opts)
	if err != nil {
		return nil, err
	}
	return &ToyMol{smiles: s}, nil
}

// MolToBinary implements chem.MolCodec.
func (e *ToyEngine) MolToBinary(m chem.Mol) ([]byte, error) {
	e.encodeCalls.Add(1)
	tm, err := toyMol(m)
	if err != nil {
		return nil, err
	}
	return append(bytes.Clone(molMagic), tm.smiles...), nil
}

// MolToSmiles implements chem.MolCodec.
func (e *ToyEngine) MolToSmiles(m chem.Mol) (string, error) {
	tm, err := toyMol(m)
	if err != nil {
		return "", err
	}
	return tm.smiles, nil
}

// MolToInchiKey implements chem.MolCodec. The key has the familiar
// 14-10-1 block layout.
func (e *ToyEngine) MolToInchiKey(m chem.Mol) (string, error) {
	tm, err := toyMol(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(tm.smiles))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:14] + "-" + h[14:24] + "-N", nil
}

// HasSubstructMatch implements chem.Matcher.
func (e *ToyEngine) HasSubstructMatch(m, query chem.Mol, useChirality bool) bool {
	tm, err := toyMol(m)
	if err != nil {
		return false
	}
	tq, err := toyMol(query)
	if err != nil {
		return false
	}
	s, q := tm.smiles, tq.smiles
	if !useChirality {
		s = strings.ReplaceAll(s, "@", "")
		q = strings.ReplaceAll(q, "@", "")
	}
	return strings.Contains(s, q)
}

// CopyMol implements chem.Normalizer.
func (e *ToyEngine) CopyMol(m chem.Mol) chem.Mol {
	tm, err := toyMol(m)
	if err != nil {
		return m
	}
	return &ToyMol{smiles: tm.smiles}
}

// Kekulize implements chem.Normalizer.
func (e *ToyEngine) Kekulize(m chem.Mol) error {
	tm, err := toyMol(m)
	if err != nil {
		return err
	}
	if strings.Contains(tm.smiles, "x") {
		return &chem.StructureError{Kind: chem.KindKekulize, Input: tm.smiles, Message: "can't kekulize mol"}
	}
	tm.smiles = strings.ToUpper(tm.smiles)
	return nil
}

// RxnFromSmarts implements chem.Reactor.
func (e *ToyEngine) RxnFromSmarts(smarts string) (chem.Rxn, error) {
	parts := strings.Split(smarts, ">")
	if len(parts) != 3 {
		return nil, &chem.StructureError{Kind: chem.KindParse, Input: smarts, Message: "expected reactants>agents>products"}
	}

	r := &ToyRxn{}
	var err error
	if r.reactants, err = splitTemplates(parts[0], smarts); err != nil {
		return nil, err
	}
	if parts[1] != "" {
		if r.agents, err = splitTemplates(parts[1], smarts); err != nil {
			return nil, err
		}
	}
	if r.products, err = splitTemplates(parts[2], smarts); err != nil {
		return nil, err
	}
	return r, nil
}

func splitTemplates(part, smarts string) ([]string, error) {
	if part == "" {
		return nil, &chem.StructureError{Kind: chem.KindParse, Input: smarts, Message: "empty template side"}
	}
	out := strings.Split(part, ".")
	for _, p := range out {
		if err := parseSmiles(p); err != nil {
			return nil, &chem.StructureError{Kind: chem.KindParse, Input: smarts, Message: err.Error()}
		}
	}
	return out, nil
}

// RxnToSmarts implements chem.Reactor.
func (e *ToyEngine) RxnToSmarts(r chem.Rxn) (string, error) {
	tr, err := toyRxn(r)
	if err != nil {
		return "", err
	}
	return strings.Join(tr.reactants, ".") + ">" + strings.Join(tr.agents, ".") + ">" + strings.Join(tr.products, "."), nil
}

// RxnToBinary implements chem.Reactor.
func (e *ToyEngine) RxnToBinary(r chem.Rxn) ([]byte, error) {
	smarts, err := e.RxnToSmarts(r)
	if err != nil {
		return nil, err
	}
	return append(bytes.Clone(rxnMagic), smarts...), nil
}

// RxnFromBinary implements chem.Reactor.
func (e *ToyEngine) RxnFromBinary(data []byte) (chem.Rxn, error) {
	if !bytes.HasPrefix(data, rxnMagic) {
		return nil, &chem.StructureError{Kind: chem.KindParse, Message: "bad template binary header"}
	}
	return e.RxnFromSmarts(string(data[len(rxnMagic):]))
}

// ReactantTemplates implements chem.Reactor.
func (e *ToyEngine) ReactantTemplates(r chem.Rxn) ([]chem.Mol, error) {
	e.templateCalls.Add(1)
	tr, err := toyRxn(r)
	if err != nil {
		return nil, err
	}
	out := make([]chem.Mol, len(tr.reactants))
	for i, p := range tr.reactants {
		out[i] = &ToyMol{smiles: p}
	}
	return out, nil
}

// RunReactants implements chem.Reactor.
func (e *ToyEngine) RunReactants(r chem.Rxn, reactants []chem.Mol, maxProducts int) ([][]chem.Mol, error) {
	tr, err := toyRxn(r)
	if err != nil {
		return nil, err
	}
	if len(reactants) != len(tr.reactants) {
		return nil, &chem.StructureError{
			Kind:    chem.KindParse,
			Message: fmt.Sprintf("template has %d reactant slots, got %d structures", len(tr.reactants), len(reactants)),
		}
	}

	smiles := make([]string, len(reactants))
	for i, m := range reactants {
		tm, err := toyMol(m)
		if err != nil {
			return nil, err
		}
		if e.PanicOn != "" && strings.Contains(tm.smiles, e.PanicOn) {
			panic(fmt.Sprintf("toy engine: refusing %q", tm.smiles))
		}
		smiles[i] = tm.smiles
	}

	var out [][]chem.Mol
	for _, positions := range matchPositions(smiles, tr.reactants) {
		tuple, err := buildProducts(smiles, tr, positions)
		if err != nil {
			return nil, err
		}
		out = append(out, tuple)
		if maxProducts > 0 && len(out) >= maxProducts {
			break
		}
	}
	return out, nil
}

// matchPositions returns every combination of match offsets, one per
// reactant, in lexicographic order.
func matchPositions(smiles, patterns []string) [][]int {
	combos := [][]int{{}}
	for i, s := range smiles {
		var offsets []int
		for p := 0; p+len(patterns[i]) <= len(s); p++ {
			if s[p:p+len(patterns[i])] == patterns[i] {
				offsets = append(offsets, p)
			}
		}

		var next [][]int
		for _, c := range combos {
			for _, off := range offsets {
				next = append(next, append(append([]int(nil), c...), off))
			}
		}
		combos = next
	}
	return combos
}

func buildProducts(smiles []string, tr *ToyRxn, positions []int) ([]chem.Mol, error) {
	var first strings.Builder
	for i, s := range smiles {
		p, n := positions[i], len(tr.reactants[i])
		first.WriteString(s[:p])
		if i == 0 {
			first.WriteString(tr.products[0])
		}
		first.WriteString(s[p+n:])
	}

	products := append([]string{first.String()}, tr.products[1:]...)
	tuple := make([]chem.Mol, len(products))
	for i, s := range products {
		if strings.Contains(s, "XX") {
			return nil, &chem.StructureError{Kind: chem.KindValence, Input: s, Message: "explicit valence greater than permitted"}
		}
		if err := parseSmiles(s); err != nil {
			return nil, &chem.StructureError{Kind: chem.KindSanitize, Input: s, Message: "product failed sanitization"}
		}
		tuple[i] = &ToyMol{smiles: s}
	}
	return tuple, nil
}
