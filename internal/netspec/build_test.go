package netspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdqy/doranet/internal/chem"
	"github.com/dmdqy/doranet/internal/engine"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/testutil"
	"github.com/dmdqy/doranet/internal/unit"
)

func TestBuild(t *testing.T) {
	n, err := CompileString(basicNetwork, "net.cue")
	require.NoError(t, err)

	p, err := engine.New(engine.WithCalculators(n.Calculators()...))
	require.NoError(t, err)

	ctx := context.Background()
	built, err := n.Build(ctx, testutil.NewToyEngine(), p)
	require.NoError(t, err)

	assert.Equal(t, []unit.Identifier{"A", "B"}, unit.UIDs(built.Seeds))
	assert.Equal(t, []string{"grow", "close"}, built.Names)
	assert.True(t, built.Operators["close"].Kekulize())

	assert.Equal(t, meta.Map{"gen": 0}, p.Metadata("A"))
	assert.Equal(t, meta.Map{
		"gen":   0,
		"label": "helper",
		"tags":  []any{"x", 2, true},
	}, p.Metadata("B"))

	// grow A -> AB, then gen(AB) = 1
	rxns, err := p.Fire(ctx, built.Operators["grow"], built.Seeds[:1])
	require.NoError(t, err)
	require.Len(t, rxns, 1)
	g, ok := meta.Lookup[int](p.Metadata("AB"), "gen")
	require.True(t, ok)
	assert.Equal(t, 1, g)
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("seed the engine rejects", func(t *testing.T) {
		n := &Network{GenerationKey: "gen", Seeds: []Seed{{Smiles: "XX"}}}
		p, err := engine.New(engine.WithCalculators(n.Calculators()...))
		require.NoError(t, err)

		_, err = n.Build(ctx, testutil.NewToyEngine(), p)
		require.Error(t, err)
		assert.True(t, chem.IsKind(err, chem.KindSanitize))
		assert.Contains(t, err.Error(), `netspec: seed "XX"`)
	})

	t.Run("operator the engine rejects", func(t *testing.T) {
		n := &Network{
			GenerationKey: "gen",
			Seeds:         []Seed{{Smiles: "A"}},
			Operators:     []OperatorDef{{Name: "broken", Smarts: "not a template"}},
		}
		p, err := engine.New()
		require.NoError(t, err)

		_, err = n.Build(ctx, testutil.NewToyEngine(), p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "netspec: operator broken")
	})
}
