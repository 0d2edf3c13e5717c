package netspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	n, err := CompileString(basicNetwork, "net.cue")
	require.NoError(t, err)
	assert.Empty(t, Validate(n))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		n    Network
		want []string
	}{
		{
			name: "no seeds",
			n:    Network{GenerationKey: DefaultGenerationKey},
			want: []string{ErrNoSeeds},
		},
		{
			name: "empty smiles",
			n:    Network{GenerationKey: DefaultGenerationKey, Seeds: []Seed{{Smiles: ""}}},
			want: []string{ErrEmptySmiles},
		},
		{
			name: "duplicate seed",
			n:    Network{GenerationKey: DefaultGenerationKey, Seeds: []Seed{{Smiles: "A"}, {Smiles: "B"}, {Smiles: "A"}}},
			want: []string{ErrDuplicateSeed},
		},
		{
			name: "seed sets the generation",
			n: Network{GenerationKey: "gen", Seeds: []Seed{
				{Smiles: "A", Meta: map[string]any{"gen": 3}},
			}},
			want: []string{ErrReservedMetaKey},
		},
		{
			name: "operator problems",
			n: Network{
				GenerationKey: DefaultGenerationKey,
				Seeds:         []Seed{{Smiles: "A"}},
				Operators: []OperatorDef{
					{Name: "a", Smarts: "A>>B"},
					{Name: "b", Smarts: ""},
					{Name: "c", Smarts: "A>>B"},
				},
			},
			want: []string{ErrEmptySmarts, ErrDuplicateOperator},
		},
		{
			name: "collects everything",
			n: Network{
				GenerationKey: DefaultGenerationKey,
				Seeds:         []Seed{{Smiles: ""}, {Smiles: "A", Meta: map[string]any{"generation": 0}}},
				Operators:     []OperatorDef{{Name: "x"}},
			},
			want: []string{ErrEmptySmiles, ErrReservedMetaKey, ErrEmptySmarts},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(&tt.n)))
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "seeds[2]", Message: "smiles is empty", Code: ErrEmptySmiles}
	assert.Equal(t, "[E201] seeds[2]: smiles is empty", e.Error())

	e.Line = 7
	assert.Equal(t, "[E201] line 7: seeds[2]: smiles is empty", e.Error())
}

func TestValidate_DuplicateMessageNamesFirst(t *testing.T) {
	n := &Network{GenerationKey: DefaultGenerationKey, Seeds: []Seed{{Smiles: "A"}, {Smiles: "A"}}}
	errs := Validate(n)
	require.Len(t, errs, 1)
	assert.Equal(t, "seeds[1]", errs[0].Field)
	assert.Contains(t, errs[0].Message, "seeds[0]")
}
