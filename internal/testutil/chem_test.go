package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdqy/doranet/internal/chem"
)

func smilesOf(t *testing.T, e *ToyEngine, tuples [][]chem.Mol) [][]string {
	t.Helper()
	out := make([][]string, len(tuples))
	for i, tuple := range tuples {
		for _, m := range tuple {
			s, err := e.MolToSmiles(m)
			require.NoError(t, err)
			out[i] = append(out[i], s)
		}
	}
	return out
}

func TestToyEngine_MolFromSmiles(t *testing.T) {
	e := NewToyEngine()
	sanitize := chem.MolOptions{Sanitize: true}

	tests := []struct {
		name    string
		smiles  string
		opts    chem.MolOptions
		want    string
		errKind chem.ErrorKind
	}{
		{"plain", "CCO", sanitize, "CCO", ""},
		{"aromatic", "ccO", sanitize, "ccO", ""},
		{"neutralize", "C+O-", chem.MolOptions{Sanitize: true, Neutralize: true}, "CO", ""},
		{"charges kept", "C+O-", sanitize, "C+O-", ""},
		{"empty", "", sanitize, "", chem.KindParse},
		{"ring digits", "C1CC1", sanitize, "", chem.KindParse},
		{"bad valence sanitized", "CXXC", sanitize, "", chem.KindSanitize},
		{"bad valence unsanitized", "CXXC", chem.MolOptions{}, "CXXC", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.MolFromSmiles(tt.smiles, tt.opts)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.True(t, chem.IsKind(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			got, err := e.MolToSmiles(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToyEngine_BinaryRoundTrip(t *testing.T) {
	e := NewToyEngine()

	data, err := e.MolToBinary(Mol("CCO"))
	require.NoError(t, err)
	assert.Equal(t, []byte("TOY1CCO"), data)

	m, err := e.MolFromBinary(data)
	require.NoError(t, err)
	s, err := e.MolToSmiles(m)
	require.NoError(t, err)
	assert.Equal(t, "CCO", s)

	_, err = e.MolFromBinary([]byte("CCO"))
	assert.True(t, chem.IsKind(err, chem.KindParse))
	assert.Equal(t, int64(1), e.EncodeCalls())
}

func TestToyEngine_InchiKey(t *testing.T) {
	e := NewToyEngine()

	k1, err := e.MolToInchiKey(Mol("CCO"))
	require.NoError(t, err)
	k2, err := e.MolToInchiKey(Mol("CCO"))
	require.NoError(t, err)
	k3, err := e.MolToInchiKey(Mol("CCN"))
	require.NoError(t, err)

	assert.Len(t, k1, 27)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, "-N", k1[25:])
}

func TestToyEngine_Kekulize(t *testing.T) {
	e := NewToyEngine()

	m := e.CopyMol(Mol("ccO"))
	require.NoError(t, e.Kekulize(m))
	s, _ := e.MolToSmiles(m)
	assert.Equal(t, "CCO", s)

	err := e.Kekulize(Mol("cxc"))
	assert.True(t, chem.IsKind(err, chem.KindKekulize))
}

func TestToyEngine_CopyIsIndependent(t *testing.T) {
	e := NewToyEngine()
	orig := Mol("cc")

	cp := e.CopyMol(orig)
	require.NoError(t, e.Kekulize(cp))

	s, _ := e.MolToSmiles(orig)
	assert.Equal(t, "cc", s)
}

func TestToyEngine_HasSubstructMatch(t *testing.T) {
	e := NewToyEngine()

	assert.True(t, e.HasSubstructMatch(Mol("CCO"), Mol("CO"), true))
	assert.False(t, e.HasSubstructMatch(Mol("CCO"), Mol("N"), true))
	assert.True(t, e.HasSubstructMatch(Mol("C@C"), Mol("CC"), false))
	assert.False(t, e.HasSubstructMatch(Mol("C@C"), Mol("CC"), true))
	assert.False(t, e.HasSubstructMatch(Mol("cc"), Mol("CC"), true))
}

func TestToyEngine_Smarts(t *testing.T) {
	e := NewToyEngine()

	r, err := e.RxnFromSmarts("A.B>N>C.O")
	require.NoError(t, err)
	assert.Equal(t, 2, r.NumReactantTemplates())
	assert.Equal(t, 1, r.NumAgentTemplates())

	smarts, err := e.RxnToSmarts(r)
	require.NoError(t, err)
	assert.Equal(t, "A.B>N>C.O", smarts)

	data, err := e.RxnToBinary(r)
	require.NoError(t, err)
	back, err := e.RxnFromBinary(data)
	require.NoError(t, err)
	smarts, _ = e.RxnToSmarts(back)
	assert.Equal(t, "A.B>N>C.O", smarts)

	for _, bad := range []string{"A>B", "A>>", ">>B", "A1>>B"} {
		_, err := e.RxnFromSmarts(bad)
		assert.True(t, chem.IsKind(err, chem.KindParse), bad)
	}
}

func TestToyEngine_ReactantTemplates(t *testing.T) {
	e := NewToyEngine()
	r, err := e.RxnFromSmarts("A.B>>C")
	require.NoError(t, err)

	tmpls, err := e.ReactantTemplates(r)
	require.NoError(t, err)
	require.Len(t, tmpls, 2)
	s, _ := e.MolToSmiles(tmpls[1])
	assert.Equal(t, "B", s)
	assert.Equal(t, int64(1), e.TemplateCalls())
}

func TestToyEngine_RunReactants(t *testing.T) {
	tests := []struct {
		name      string
		smarts    string
		reactants []string
		max       int
		want      [][]string
	}{
		{"single match", "A>>B", []string{"A"}, 0, [][]string{{"B"}}},
		{"every match position", "A>>B", []string{"CAA"}, 0, [][]string{{"CBA"}, {"CAB"}}},
		{"capped", "A>>B", []string{"CAA"}, 1, [][]string{{"CBA"}}},
		{"no match", "N>>B", []string{"CAA"}, 0, nil},
		{"join", "A.B>>C", []string{"A", "B"}, 0, [][]string{{"C"}}},
		{"join keeps remainder", "A.B>>C", []string{"AA", "BO"}, 0, [][]string{{"CAO"}, {"ACO"}}},
		{"leaving group", "A>>B.O", []string{"A"}, 0, [][]string{{"B", "O"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewToyEngine()
			r, err := e.RxnFromSmarts(tt.smarts)
			require.NoError(t, err)

			mols := make([]chem.Mol, len(tt.reactants))
			for i, s := range tt.reactants {
				mols[i] = Mol(s)
			}

			got, err := e.RunReactants(r, mols, tt.max)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, smilesOf(t, e, got))
		})
	}
}

func TestToyEngine_RunReactantsErrors(t *testing.T) {
	e := NewToyEngine()

	r, err := e.RxnFromSmarts("A>>XX")
	require.NoError(t, err)
	_, err = e.RunReactants(r, []chem.Mol{Mol("A")}, 0)
	assert.True(t, chem.IsKind(err, chem.KindValence))

	r, err = e.RxnFromSmarts("A.B>>C")
	require.NoError(t, err)
	_, err = e.RunReactants(r, []chem.Mol{Mol("A")}, 0)
	assert.Error(t, err)

	e.PanicOn = "Q"
	r, err = e.RxnFromSmarts("A>>B")
	require.NoError(t, err)
	assert.Panics(t, func() {
		_, _ = e.RunReactants(r, []chem.Mol{Mol("QA")}, 0)
	})
}
